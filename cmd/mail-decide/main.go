package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/classify"
	"github.com/mikey/llm-mail-router/internal/config"
	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/factory"
	"github.com/mikey/llm-mail-router/internal/logging"
	"github.com/mikey/llm-mail-router/internal/route"
	"github.com/mikey/llm-mail-router/internal/tenant"
	"github.com/mikey/llm-mail-router/internal/utils"
)

var (
	// Oracle provider flags
	provider    = flag.String("provider", "none", "Oracle provider (bedrock, gemini, openai, none)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for oracle response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for oracle generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for oracle generation")
	maxBodySize = flag.Int("max-body-size", 4096, "Maximum email body size to send to the oracle")
	timeout     = flag.Duration("timeout", 10*time.Second, "Oracle request timeout")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Tenant flags
	tenantFile = flag.String("tenant", "", "Tenant config file (use built-in default tenant if not specified)")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	receivedAt = flag.String("received", "", "Override message receipt time (RFC3339, defaults to now)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Load the tenant
	var t *tenant.Config
	if *tenantFile != "" {
		t, err = tenant.LoadFile(*tenantFile)
		if err != nil {
			logger.Fatal("Failed to load tenant config", zap.Error(err), zap.String("file", *tenantFile))
		}
		logger.Info("Loaded tenant", zap.String("tenant_id", t.ID))
	} else {
		t = tenant.DefaultTenant()
		logger.Info("Using built-in default tenant")
	}
	if err := t.Validate(); err != nil {
		logger.Fatal("Invalid tenant config", zap.Error(err))
	}

	// Initialize oracle client
	textProcessor := utils.NewTextProcessor(logger)
	oracleFactory := factory.NewOracleFactory(cfg, logger, textProcessor)
	oracle, err := oracleFactory.CreateOracle()
	if err != nil {
		logger.Fatal("Failed to create oracle client", zap.Error(err))
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	parsed, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	bodyBytes, err := io.ReadAll(parsed.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}

	received := time.Now()
	if *receivedAt != "" {
		received, err = time.Parse(time.RFC3339, *receivedAt)
		if err != nil {
			logger.Fatal("Failed to parse received time", zap.Error(err))
		}
	}

	msg := &core.Message{
		ID:         strings.Trim(parsed.Header.Get("Message-ID"), "<>"),
		Sender:     parsed.Header.Get("From"),
		Recipient:  parsed.Header.Get("To"),
		Subject:    parsed.Header.Get("Subject"),
		Body:       string(bodyBytes),
		ReceivedAt: received,
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("cli-%d", received.UnixNano())
	}

	// Print message summary
	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", msg.Sender)
	fmt.Printf("To: %s\n", msg.Recipient)
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Received: %s\n", msg.ReceivedAt.Format(time.RFC3339))
	fmt.Printf("Body length: %d bytes\n", len(msg.Body))
	fmt.Printf("\n")

	startTime := time.Now()

	// Classify
	var oracleResult *core.OracleResult
	if oracle != nil {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		oracleResult, err = oracle.Classify(ctx, msg, t.Catalog())
		cancel()
		if err != nil {
			logger.Warn("Oracle classification failed, using keyword fallback", zap.Error(err))
			oracleResult = nil
		}
	}

	resolver := classify.NewResolver(logger)
	cls, err := resolver.Resolve(t, msg, oracleResult)
	if err != nil {
		logger.Fatal("Failed to classify message", zap.Error(err))
	}

	// Decide
	engine := route.NewEngine(logger)
	decision, err := engine.Decide(t, cls, msg, nil)
	if err != nil {
		logger.Fatal("Failed to route message", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("=== Classification ===\n")
	fmt.Printf("Category: %s\n", cls.Category)
	fmt.Printf("Priority: %s\n", cls.Priority)
	fmt.Printf("Confidence: %.4f\n", cls.Confidence)
	fmt.Printf("Source: %s\n", cls.Source)
	if cls.Reasoning != "" {
		fmt.Printf("Reasoning: %s\n", cls.Reasoning)
	}

	fmt.Printf("\n=== Routing Decision ===\n")
	fmt.Printf("Tenant: %s\n", decision.TenantID)
	fmt.Printf("Recipient: %s\n", decision.Recipient)
	fmt.Printf("Reason: %s\n", decision.Reason)
	fmt.Printf("SLA deadline: %s\n", decision.SLADeadline.Format(time.RFC3339))
	if len(decision.Chain) > 0 {
		fmt.Printf("Escalation chain:\n")
		for i, step := range decision.Chain {
			fmt.Printf("  %d. %s at %s\n", i+1, step.Recipient, step.FireAt.Format(time.RFC3339))
		}
	}
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := oracle.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close oracle client", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set oracle provider
	v.Set("oracle.provider", *provider)
	v.Set("oracle.timeout", timeout.String())

	// Set provider-specific configuration
	switch *provider {
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
		v.Set("bedrock.max_body_size", *maxBodySize)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
		v.Set("gemini.max_body_size", *maxBodySize)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
		v.Set("openai.max_body_size", *maxBodySize)
	}

	return config.NewFromViper(v)
}
