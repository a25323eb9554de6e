package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/deckforge/deckforge/internal/auth"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/language"
	"github.com/deckforge/deckforge/internal/logger"
	"github.com/deckforge/deckforge/internal/metadata"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
)

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(service string, allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		allowEnv = true
	}
	if envOnly {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
		return "", "", fmt.Errorf("env-only set but %s_API_KEY is not set", strings.ToUpper(service))
	}

	if key, source := getKey(service, false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		svcName := "Gemini"
		if service == "openai" {
			svcName = "OpenAI"
		}
		key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", svcName))
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

// resolveLanguageName accepts either a language code (e.g. "fr") or a
// display name (e.g. "French") and returns the display name used in
// the translation prompt and SubmitOptions.
func resolveLanguageName(input string) (string, error) {
	if lang, ok := language.GetLanguage(strings.ToLower(input)); ok {
		return lang.Name, nil
	}
	needle := strings.TrimSpace(input)
	if needle == "" {
		return "", fmt.Errorf("language is empty")
	}
	for _, entry := range language.GetSupportedLanguages() {
		if strings.EqualFold(entry.Name, needle) {
			return entry.Name, nil
		}
	}
	return needle, nil
}

func printUsageStats(usage backend.Usage, backendKind, model string) {
	fmt.Println("\n--- Execution Stats ---")
	fmt.Printf("Backend: %s\n", backendKind)
	fmt.Printf("Model: %s\n", model)
	if usage.TotalTokens == 0 {
		return
	}
	fmt.Printf("Tokens: In=%d, Out=%d, Total=%d\n", usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)

	var inRate, outRate float64
	switch backendKind {
	case "openai":
		pricing, _ := metadata.OpenAIPricing(model)
		inRate, outRate = pricing.InputPerMillion, pricing.OutputPerMillion
	default:
		pricing, _ := metadata.GeminiPricing(model)
		inRate, outRate = pricing.InputPerMillion, pricing.OutputPerMillion
	}
	inCost := (float64(usage.PromptTokens) / 1_000_000) * inRate
	outCost := (float64(usage.CompletionTokens) / 1_000_000) * outRate
	fmt.Printf("Estimated Cost: $%.5f\n", inCost+outCost)
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Cancellation requested")
		cancel()
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
