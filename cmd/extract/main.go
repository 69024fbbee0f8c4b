// Command extract runs the document pipeline on a local PDF without the
// database or object storage and prints the refined result as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"actflow/internal/config"
	"actflow/internal/domain"
	"actflow/internal/export"
	"actflow/internal/extractor"
	"actflow/internal/llm"
	_ "actflow/internal/llm/claude"
	_ "actflow/internal/llm/gemini"
	_ "actflow/internal/llm/openai"
	"actflow/internal/logging"
	"actflow/internal/metrics"
	"actflow/internal/pdf"
	"actflow/internal/pipeline"
	"actflow/internal/postprocess"
	"actflow/internal/validator"
)

var (
	inputFile  string
	typeName   string
	modeName   string
	verify     bool
	xlsxOutput string
)

var rootCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured data from a PDF act",
	Long: `Extract runs a PDF through the extraction pipeline and prints the result.

LLM providers, pdftoppm and logging are configured from ACTFLOW_ environment
variables, the same as the server.

Examples:
  extract --file act.pdf
  extract --file act.pdf --type huawei --mode TEXT_EXTRACTION
  extract --file act.pdf --verify --xlsx act.xlsx`,
	SilenceUsage: true,
	RunE:         runExtract,
}

func init() {
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "path to the PDF to process")
	rootCmd.Flags().StringVarP(&typeName, "type", "t", "huawei", "processor type: huawei, invoice, contract, receipt, custom")
	rootCmd.Flags().StringVarP(&modeName, "mode", "m", "", "processing mode: IMAGE_OCR or TEXT_EXTRACTION (default: processor default)")
	rootCmd.Flags().BoolVar(&verify, "verify", false, "enable verification of extracted values")
	rootCmd.Flags().StringVar(&xlsxOutput, "xlsx", "", "also write the result as an XLSX workbook to this path")
	_ = rootCmd.MarkFlagRequired("file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExtract(cmd *cobra.Command, _ []string) error {
	pt, err := parseProcessorType(typeName)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Log)
	m := metrics.NewPipelineMetrics()

	llmClient, err := llm.NewFromConfig(&cfg.LLM, m, logger)
	if err != nil {
		return fmt.Errorf("initializing LLM client: %w", err)
	}
	processor := pipeline.NewProcessor(
		extractor.New(pdf.NewEngine(cfg.PDF, logger), cfg.PDF.Zoom, logger),
		llmClient,
		validator.NewEngine(validator.DefaultRegistry(), logger),
		pipeline.Config{Model: cfg.Pipeline.Model, PageConcurrency: cfg.Pipeline.PageConcurrency},
		m,
		logger,
	)

	refiners := postprocess.DefaultRegistry()
	bundle := refiners.Get(pt).DefaultBundle()
	if modeName != "" {
		bundle.ProcessingMode = modeName
	}
	bundle.VerificationEnabled = verify

	ctx, cancel := signalContext(cmd.Context(), cfg.Pipeline.DocumentTimeout())
	defer cancel()

	result := processor.ProcessDocument(ctx, content, bundle)
	if _, failed := result["error"]; !failed {
		result = refiners.Refine(pt, result)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	if xlsxOutput != "" {
		data, err := export.WorkbookXLSX([]export.Document{{FileName: inputFile, Status: resultStatus(result), Result: result}})
		if err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
		if err := os.WriteFile(xlsxOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", xlsxOutput, err)
		}
	}

	if msg, failed := result["error"]; failed {
		return fmt.Errorf("processing failed: %v", msg)
	}
	return nil
}

// parseProcessorType accepts the short names used on the command line as
// well as the stored enum values.
func parseProcessorType(name string) (domain.ProcessorType, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "HUAWEI" {
		return domain.ProcessorTypeHuaweiAct, nil
	}
	pt := domain.ProcessorType(n)
	if !domain.AllowedProcessorTypes[pt] {
		return "", fmt.Errorf("unknown processor type %q", name)
	}
	return pt, nil
}

func resultStatus(result map[string]any) string {
	if _, failed := result["error"]; failed {
		return string(domain.FileStatusFailed)
	}
	return string(domain.FileStatusCompleted)
}
