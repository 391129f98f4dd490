package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/indenture-io/indenture/internal/contract"
	"github.com/indenture-io/indenture/internal/verifier/model"
	"github.com/indenture-io/indenture/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL   string
	bearerToken string
	cfgFile     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indenture",
	Short: "Indenture transaction verifier CLI",
	Long: `indenture is the command-line interface for the Indenture verification
service.

It submits ledger transactions for contract verification, looks up stored
verdicts, and inspects the hash-chained audit log.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.indenture")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if bearerToken == "" {
			bearerToken = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.indenture/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "verifier base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "session token for authenticated routes")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(verdictCmd)
	rootCmd.AddCommand(verdictsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(exampleCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if bearerToken != "" {
		opts = append(opts, client.WithBearerToken(bearerToken))
	}
	return client.New(serverURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── verify ───────────────────────────────────────────────────────────────────

var (
	verifyFormat  string
	verifyOffline bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <request.json>",
	Short: "Submit a transaction for contract verification",
	Long: `verify reads a verification request from a JSON file (or stdin when the
argument is "-") and submits it to the verifier:

  indenture verify tx.json
  cat tx.json | indenture verify -

With --offline the engine runs locally instead; no verdict is stored and no
audit entry is written. Use "indenture example" to print a sample request.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "text", "Output format: text or json")
	verifyCmd.Flags().BoolVar(&verifyOffline, "offline", false, "Run the verification engine locally instead of calling the server")
}

func runVerify(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	if verifyOffline {
		return runVerifyOffline(raw)
	}

	var req client.VerifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse request JSON: %w", err)
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	verdict, err := c.Verify(context.Background(), &req)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	if verifyFormat == "json" {
		return printJSON(verdict)
	}
	printVerdictText(verdict)
	if !verdict.Accepted() {
		os.Exit(1)
	}
	return nil
}

// runVerifyOffline runs the engine in-process with no settlement-unit
// restriction, no persistence, and no audit entry.
func runVerifyOffline(raw []byte) error {
	var req model.VerifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse request JSON: %w", err)
	}

	view, err := req.ToView()
	if err != nil {
		return fmt.Errorf("malformed request: %w", err)
	}

	settlement := contract.NewPaymentSum()
	var verifyErr error
	switch req.Contract {
	case model.ContractCommercialPaper:
		verifyErr = contract.NewCommercialPaper(contract.WithSettlement(settlement)).Verify(view)
	case model.ContractIOU:
		verifyErr = contract.NewIOUContract(contract.WithSettlement(settlement)).Verify(view)
	default:
		return fmt.Errorf("unknown contract %q", req.Contract)
	}

	verdict := &client.Verdict{
		TxDigest: view.Digest().Hex(),
		Contract: req.Contract,
		Outcome:  "accepted",
	}
	if verifyErr != nil {
		verdict.Outcome = "rejected"
		if v, ok := contract.AsViolation(verifyErr); ok {
			verdict.ViolationCode = string(v.Code)
			verdict.Reason = v.Reason
		} else {
			verdict.Reason = verifyErr.Error()
		}
	}

	if verifyFormat == "json" {
		if err := printJSON(verdict); err != nil {
			return err
		}
	} else {
		printVerdictText(verdict)
	}
	if !verdict.Accepted() {
		os.Exit(1)
	}
	return nil
}

func printVerdictText(v *client.Verdict) {
	if v.Accepted() {
		fmt.Println("✓ Transaction accepted")
	} else {
		fmt.Println("✗ Transaction rejected")
	}
	fmt.Println()
	if v.ID != "" {
		fmt.Printf("  Verdict:  %s\n", v.ID)
	}
	fmt.Printf("  Digest:   %s\n", v.TxDigest)
	fmt.Printf("  Contract: %s\n", v.Contract)
	if v.ViolationCode != "" {
		fmt.Printf("  Code:     %s\n", v.ViolationCode)
	}
	if v.Reason != "" {
		fmt.Printf("  Reason:   %s\n", v.Reason)
	}
}

// ── verdict ──────────────────────────────────────────────────────────────────

var verdictFormat string

var verdictCmd = &cobra.Command{
	Use:   "verdict <id|digest>",
	Short: "Look up a stored verdict by ID or transaction digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx := context.Background()
		// Verdict IDs are UUIDs (36 chars); everything else is treated as a digest.
		var verdict *client.Verdict
		if len(args[0]) == 36 {
			verdict, err = c.GetVerdict(ctx, args[0])
		} else {
			verdict, err = c.GetVerdictByDigest(ctx, args[0])
		}
		if err != nil {
			return fmt.Errorf("get verdict: %w", err)
		}

		if verdictFormat == "json" {
			return printJSON(verdict)
		}
		printVerdictText(verdict)
		return nil
	},
}

func init() {
	verdictCmd.Flags().StringVar(&verdictFormat, "format", "text", "Output format: text or json")
}

// ── verdicts ─────────────────────────────────────────────────────────────────

var (
	listOutcome string
	listLimit   int
	listOffset  int
	listFormat  string
)

var verdictsCmd = &cobra.Command{
	Use:   "verdicts",
	Short: "List stored verdicts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		verdicts, err := c.ListVerdicts(context.Background(), listOutcome, listLimit, listOffset)
		if err != nil {
			return fmt.Errorf("list verdicts: %w", err)
		}

		if listFormat == "json" {
			return printJSON(verdicts)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCONTRACT\tOUTCOME\tCODE\tDIGEST\tCREATED")
		for _, v := range verdicts {
			digest := v.TxDigest
			if len(digest) > 16 {
				digest = digest[:16] + "…"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				v.ID, v.Contract, v.Outcome, v.ViolationCode, digest,
				v.CreatedAt.Local().Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	verdictsCmd.Flags().StringVar(&listOutcome, "outcome", "", "Filter by outcome: accepted or rejected")
	verdictsCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of verdicts to return")
	verdictsCmd.Flags().IntVar(&listOffset, "offset", 0, "Pagination offset")
	verdictsCmd.Flags().StringVar(&listFormat, "format", "text", "Output format: text or json")
}

// ── audit ────────────────────────────────────────────────────────────────────

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the verifier's hash-chained audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		overview, err := c.AuditOverview(context.Background())
		if err != nil {
			return fmt.Errorf("audit overview: %w", err)
		}

		fmt.Printf("Entries: %d\n", overview.Entries)
		fmt.Printf("Root:    %s\n", overview.Root)
		return nil
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Walk the full audit chain server-side and report integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		valid, detail, err := c.AuditVerify(context.Background())
		if err != nil {
			return fmt.Errorf("audit verify: %w", err)
		}
		if !valid {
			fmt.Printf("✗ Audit chain invalid: %s\n", detail)
			os.Exit(1)
		}
		fmt.Println("✓ Audit chain valid")
		return nil
	},
}

var auditEntryCmd = &cobra.Command{
	Use:   "entry <index>",
	Short: "Fetch a single audit log entry by index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 0 {
			return fmt.Errorf("index must be a non-negative integer, got %q", args[0])
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		entry, err := c.GetAuditEntry(context.Background(), idx)
		if err != nil {
			return fmt.Errorf("get entry %d: %w", idx, err)
		}
		return printJSON(entry)
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditEntryCmd)
}

// ── token ────────────────────────────────────────────────────────────────────

var (
	tokenSecret  string
	tokenSubject string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the admin secret for a session token",
	Long: `token calls the verifier's auth endpoint and prints a session token.

The admin secret can also be supplied via the INDENTURE_ADMIN_SECRET
environment variable. Save the token under "token" in
~/.indenture/config.yaml (or pass --token) for authenticated commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := tokenSecret
		if secret == "" {
			secret = os.Getenv("INDENTURE_ADMIN_SECRET")
		}
		if secret == "" {
			return fmt.Errorf("--secret or INDENTURE_ADMIN_SECRET is required")
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		token, err := c.IssueToken(context.Background(), secret, tokenSubject, tokenRole)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Admin secret (or set INDENTURE_ADMIN_SECRET)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject, recorded as webhook owner")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "operator", "Token role: operator, auditor, or admin")
}

// ── example ──────────────────────────────────────────────────────────────────

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print a sample verification request JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		maturity := time.Now().UTC().AddDate(0, 3, 0).Truncate(time.Second)
		notAfter := maturity.Add(-time.Hour)

		req := client.VerifyRequest{
			Contract: "commercial_paper",
			Outputs: []client.StateRecord{{
				Kind:       "commercial_paper",
				Issuer:     issuer,
				FaceValue:  &client.AmountRecord{Quantity: 100_000, Unit: "USD"},
				MaturityAt: &maturity,
			}},
			Commands: []client.CommandRecord{{
				Kind:    "issue",
				Signers: []string{issuer},
			}},
			Window: &client.WindowRecord{NotAfter: &notAfter},
		}
		return printJSON(req)
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("indenture %s\n", version)
	},
}
