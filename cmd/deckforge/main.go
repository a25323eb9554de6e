// Command deckforge translates slide-deck presentations while
// preserving run-level formatting, via the internal/pipeline job
// orchestrator.
package main

func main() {
	execute()
}
