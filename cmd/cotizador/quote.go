package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cotizador/internal/clinicsearch"
	"cotizador/internal/models"
	"cotizador/internal/proposal"
	"cotizador/internal/service"
)

var quoteFlags struct {
	client     string
	age        int
	health     string
	dependents []string
	tier       string
	continuity string
	clinics    []string
	accessCode string
	email      string
	phone      string
	asJSON     bool
	proposal   string
	rationale  string
	recommend  string
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Run one search from the command line",
	Long: `Runs a search with the same rules as the API and prints the result.

Dependents are given as AGE or AGE:HEALTH, e.g. --dependent 8 --dependent 12:cronico.
With --proposal the PDF is written to the given directory.`,
	RunE: runQuote,
}

func init() {
	f := quoteCmd.Flags()
	f.StringVar(&quoteFlags.client, "client", "", "Client name")
	f.IntVar(&quoteFlags.age, "age", 0, "Holder age")
	f.StringVar(&quoteFlags.health, "health", "sano", "Holder health: sano | cronico")
	f.StringArrayVar(&quoteFlags.dependents, "dependent", nil, "Dependent as AGE or AGE:HEALTH (repeatable)")
	f.StringVar(&quoteFlags.tier, "tier", "integral", "Coverage: basica | integral | reembolso | internacional")
	f.StringVar(&quoteFlags.continuity, "continuity", "nuevo", "Condition: nuevo | continuidad")
	f.StringArrayVar(&quoteFlags.clinics, "clinic", nil, "Preferred clinic (repeatable)")
	f.StringVar(&quoteFlags.accessCode, "access-code", "", "Advisor or admin access code")
	f.StringVar(&quoteFlags.email, "email", "", "Client email")
	f.StringVar(&quoteFlags.phone, "phone", "", "Client phone")
	f.BoolVar(&quoteFlags.asJSON, "json", false, "Print the raw response as JSON")
	f.StringVar(&quoteFlags.proposal, "proposal", "", "Directory to write the PDF proposal to")
	f.StringVar(&quoteFlags.recommend, "recommend", "", "Recommended plan ID (advisor/admin)")
	f.StringVar(&quoteFlags.rationale, "rationale", "", "Expert rationale (advisor/admin)")
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := buildQuoteRequest()
	if err != nil {
		return err
	}

	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()
	ctx := cmd.Context()

	resp, err := a.Service.Quote(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if quoteFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		printQuote(out, resp)
	}

	if quoteFlags.proposal == "" || resp.Empty {
		return nil
	}
	res, err := a.Service.Proposal(ctx, service.ProposalRequest{
		QuoteID:       resp.QuoteID,
		RecommendedID: quoteFlags.recommend,
		Rationale:     quoteFlags.rationale,
		AccessCode:    req.AccessCode,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(quoteFlags.proposal, 0o755); err != nil {
		return err
	}
	path := filepath.Join(quoteFlags.proposal, res.FileName)
	if err := os.WriteFile(path, res.Document, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPropuesta N° %d: %s\n", res.Folio, path)
	return nil
}

func buildQuoteRequest() (service.QuoteRequest, error) {
	health, err := parseHealth(quoteFlags.health)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	deps, err := parseDependents(quoteFlags.dependents)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	tier, err := parseTier(quoteFlags.tier)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	continuity, err := parseContinuity(quoteFlags.continuity)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	return service.QuoteRequest{
		Client:     quoteFlags.client,
		HolderAge:  quoteFlags.age,
		Health:     health,
		Dependents: deps,
		Tier:       tier,
		Continuity: continuity,
		Clinics:    quoteFlags.clinics,
		AccessCode: quoteFlags.accessCode,
		Email:      quoteFlags.email,
		Phone:      quoteFlags.phone,
	}, nil
}

func parseHealth(s string) (models.HealthClass, error) {
	switch clinicsearch.Fold(s) {
	case "sano", "healthy":
		return models.HealthHealthy, nil
	case "cronico", "chronic":
		return models.HealthChronic, nil
	}
	return "", fmt.Errorf("unknown health %q", s)
}

// parseDependents reads AGE or AGE:HEALTH values.
func parseDependents(values []string) ([]models.Dependent, error) {
	out := make([]models.Dependent, 0, len(values))
	for _, v := range values {
		ageStr, healthStr, hasHealth := strings.Cut(v, ":")
		age, err := strconv.Atoi(strings.TrimSpace(ageStr))
		if err != nil {
			return nil, fmt.Errorf("dependent %q: invalid age", v)
		}
		d := models.Dependent{Age: age, Health: models.HealthHealthy}
		if hasHealth {
			if d.Health, err = parseHealth(healthStr); err != nil {
				return nil, fmt.Errorf("dependent %q: %w", v, err)
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func parseTier(s string) (models.Tier, error) {
	if t := models.Tier(s); t.Valid() {
		return t, nil
	}
	switch clinicsearch.Fold(s) {
	case "basica":
		return models.TierBasic, nil
	case "integral":
		return models.TierIntegral, nil
	case "reembolso":
		return models.TierReimbursement, nil
	case "internacional":
		return models.TierInternational, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

func parseContinuity(s string) (models.Continuity, error) {
	if c := models.Continuity(s); c.Valid() {
		return c, nil
	}
	switch clinicsearch.Fold(s) {
	case "nuevo":
		return models.ContinuityNew, nil
	case "continuidad":
		return models.ContinuityTransfer, nil
	}
	return "", fmt.Errorf("unknown continuity %q", s)
}

func printQuote(w io.Writer, resp *service.QuoteResponse) {
	fmt.Fprintln(w, resp.Message)
	if resp.Notice != "" {
		fmt.Fprintln(w, resp.Notice)
	}
	if resp.Empty {
		return
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(resp.Comparison) > 0 {
		fmt.Fprintln(tw, "PLAN\tLISTA\tDSCTO\tFINAL\tAHORRO\tMENSUAL\t")
		for _, r := range resp.Comparison {
			fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\t%s\t\n",
				r.ID,
				proposal.Soles(r.ListPrice),
				r.DiscountPct,
				proposal.Soles(r.FinalPrice),
				proposal.Soles(r.Savings),
				proposal.Soles(r.Monthly),
			)
		}
	} else {
		fmt.Fprintln(tw, "PLAN\tASEGURADORA\t")
		for _, c := range resp.Candidates {
			fmt.Fprintf(tw, "%s\t%s\t\n", c.Plan, c.Insurer)
		}
	}
	tw.Flush()

	if resp.Hint != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, resp.Hint)
	}
}
