package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/di"
	"github.com/mikey/phishshield/internal/utils"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(runCLI); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// runCLI reads one RFC 5322 message, analyzes it and prints the score
// breakdown.
func runCLI(flags *di.CLIFlags, service *core.AnalyzerService, logger *zap.Logger) error {
	defer logger.Sync()

	email, err := readEmail(flags.InputFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result := service.Analyze(ctx, email)
	printResult(email, result)
	return nil
}

// readEmail parses an RFC 5322 message from the given file, or stdin when no
// file is given.
func readEmail(inputFile string) (*core.EmailRecord, error) {
	var reader io.Reader = os.Stdin
	if inputFile != "" {
		file, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	sender := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(sender); err == nil {
		sender = addr.Address
	}

	return &core.EmailRecord{
		Sender:  sender,
		Subject: msg.Header.Get("Subject"),
		Body:    string(body),
		Links:   utils.ExtractLinks(string(body)),
	}, nil
}

func printResult(email *core.EmailRecord, result *core.AnalysisResult) {
	fmt.Printf("Sender:  %s\n", email.Sender)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Println()

	printSignal("Header", result.HeaderScore, result.HeaderReasons)
	printSignal("Domain", result.DomainAnalysis.TrustScore, result.DomainAnalysis.Reasons)
	printSignal("Body", result.BodyScore, result.BodyKeywords)
	printSignal("Intent", result.IntentScore, result.IntentAnalysis.Reasons)
	printSignal("Adaptive", result.AdaptiveScore, []string{result.AdaptiveReason})
	printSignal("Links", result.LinkScore, result.LinkReasons)

	fmt.Println()
	fmt.Printf("Final score: %.2f\n", result.FinalScore)
	fmt.Printf("Verdict:     %s\n", result.Verdict)
}

func printSignal(name string, score float64, reasons []string) {
	fmt.Printf("%-9s %.3f", name, score)
	var nonEmpty []string
	for _, reason := range reasons {
		if reason != "" {
			nonEmpty = append(nonEmpty, reason)
		}
	}
	if len(nonEmpty) > 0 {
		fmt.Printf("  (%s)", strings.Join(nonEmpty, "; "))
	}
	fmt.Println()
}
