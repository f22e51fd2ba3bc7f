package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/tabscope-cli/internal/analysis"
	"github.com/KaramelBytes/tabscope-cli/internal/backend"
	cfgpkg "github.com/KaramelBytes/tabscope-cli/internal/config"
	"github.com/KaramelBytes/tabscope-cli/internal/ratelimit"
	"github.com/KaramelBytes/tabscope-cli/internal/utils"
	"github.com/KaramelBytes/tabscope-cli/internal/workspace"
	"github.com/spf13/cobra"
)

const rateLimitFile = "ratelimit.json"

// payloadFlags shape how a backend payload is rendered.
type payloadFlags struct {
	report      reportFlags
	format      string
	output      string
	savePayload string
	noHistory   bool
}

func bindPayloadFlags(cmd *cobra.Command, pf *payloadFlags) {
	f := cmd.Flags()
	f.BoolVar(&pf.report.correlations, "correlations", true, "derive Pearson correlations from the returned rows")
	f.BoolVar(&pf.report.histograms, "histogram", true, "derive histograms from the returned rows")
	f.StringVar(&pf.report.preset, "preset", "chart", "histogram preset: chart | general")
	f.IntVar(&pf.report.bins, "bins", 0, "histogram bin count (0 = preset)")
	f.IntVar(&pf.report.decimals, "decimals", -1, "histogram label decimals (-1 = preset)")
	f.IntVar(&pf.report.sampleRows, "sample-rows", -1, "number of sample rows to include (-1 = config)")
	pf.report.topValues = -1
	f.StringVarP(&pf.format, "format", "f", "md", "output format: md | html | json (raw payload)")
	f.StringVarP(&pf.output, "output", "o", "", "optional path to write the report (stdout if omitted)")
	f.StringVar(&pf.savePayload, "save-payload", "", "also write the raw payload JSON to this path")
	f.BoolVar(&pf.noHistory, "no-history", false, "do not record this run in the workspace history")
}

// showPayload validates, renders and stores a payload fetched for file.
func showPayload(c *cfgpkg.Global, pf payloadFlags, file string, p *backend.Payload) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	opt, err := pf.report.options(c)
	if err != nil {
		return err
	}
	md := analysis.RenderPayload(p, opt)
	title := "tabscope: " + filepath.Base(file)
	if p.Metadata != nil && p.Metadata.Filename != "" {
		title = "tabscope: " + p.Metadata.Filename
	}
	body, ext, err := render(pf.format, md, title, func() any { return p })
	if err != nil {
		return err
	}
	if pf.savePayload != "" {
		raw, err := utils.PrettyJSON(p)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(pf.savePayload, raw); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	if !pf.noHistory {
		run := workspace.NewRun(file, workspace.SourceRemote)
		run.Rows = len(p.Data)
		if p.Metadata != nil && p.Metadata.Rows > run.Rows {
			run.Rows = p.Metadata.Rows
		}
		run.Columns = len(p.Columns)
		run.QualityScore = p.DataQuality.QualityScore
		recordRun(c, run, ext, body)
	}
	return emit(pf.output, body)
}

// remoteError logs the full chain and returns the sentence meant for users.
func remoteError(op string, err error) error {
	log.Printf("[Backend] %s failed: %v", op, err)
	return fmt.Errorf("%s failed: %s", op, backend.UserMessage(err))
}

var upFlags payloadFlags

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Send a file to the analysis backend and render its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		path := args[0]
		res := limitsFromConfig(c).ValidateFile(path)
		printWarnings(res.Warnings)
		if err := res.Err(); err != nil {
			return err
		}
		client := newBackendClient(c)
		ctx := cmdContext(cmd)
		limiter := ratelimit.PerMinute(ratelimit.NewFileStore(filepath.Join(c.WorkspaceDir, rateLimitFile)), c.RateLimitPerMinute)
		if err := limiter.Check(ctx, client.BaseURL()); err != nil {
			return err
		}
		p, err := client.Upload(ctx, path)
		if err != nil {
			return remoteError("upload", err)
		}
		return showPayload(c, upFlags, path, p)
	},
}

var smpFlags payloadFlags

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Fetch the backend's sample dataset and render its report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		p, err := newBackendClient(c).Sample(cmdContext(cmd))
		if err != nil {
			return remoteError("sample", err)
		}
		return showPayload(c, smpFlags, "sample-data", p)
	},
}

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the analysis backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		client := newBackendClient(c)
		ctx, cancel := context.WithTimeout(cmdContext(cmd), healthTimeout)
		defer cancel()
		if !client.Health(ctx) {
			return fmt.Errorf("backend at %s is not healthy", client.BaseURL())
		}
		fmt.Printf("✓ Backend at %s is healthy\n", client.BaseURL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(healthCmd)
	bindPayloadFlags(uploadCmd, &upFlags)
	bindPayloadFlags(sampleCmd, &smpFlags)
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "how long to wait for the health check")
}
