package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/domain/arbitrage"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

// Formatos de salida.
const (
	FormatTable   = "table"
	FormatCompact = "compact"
)

// Console implementa ports.Notifier.
type Console struct {
	out      io.Writer
	bankroll decimal.Decimal
	format   string
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole crea un notificador que escribe a stdout.
// bankroll es el capital de referencia para calcular importes por pata.
func NewConsole(bankroll decimal.Decimal, format string) *Console {
	return NewConsoleWriter(os.Stdout, bankroll, format)
}

// NewConsoleWriter crea un notificador sobre w (tests).
func NewConsoleWriter(w io.Writer, bankroll decimal.Decimal, format string) *Console {
	if format != FormatCompact {
		format = FormatTable
	}
	return &Console{out: w, bankroll: bankroll, format: format}
}

// Notify imprime el scan en el formato configurado.
func (c *Console) Notify(_ context.Context, report domain.ScanReport) error {
	if len(report.Results) == 0 && len(report.Failures) == 0 {
		fmt.Fprintf(c.out, "[%s] no market pairs evaluated\n", stamp(report))
		return nil
	}

	if c.format == FormatCompact {
		c.printCompact(report)
		return nil
	}

	c.printFull(report)
	return nil
}

// printCompact imprime lo esencial en una línea, más una por oportunidad.
func (c *Console) printCompact(report domain.ScanReport) {
	opps := report.Opportunities()

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d pairs → opp:%d fail:%d", stamp(report),
		len(report.Results), len(opps), len(report.Failures))

	for i, sig := range opps {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s margin %.2f%%", compactName(sig.MarketPairID, 25), sig.Margin*100)
		if sig.Uncovered > 0 {
			fmt.Fprintf(&sb, " (uncov %.0f%%)", sig.Uncovered*100)
		}
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla de pares, el detalle de cada oportunidad y los fallos.
func (c *Console) printFull(report domain.ScanReport) {
	opps := report.Opportunities()
	fmt.Fprintf(c.out, "\n[%s] %d pairs — opportunities:%d failures:%d (%s)\n",
		stamp(report), len(report.Results), len(opps), len(report.Failures),
		report.Duration().Round(time.Millisecond))

	if len(report.Results) > 0 {
		c.printResults(report)
	}
	for _, sig := range opps {
		c.printOpportunity(sig)
	}
	if len(report.Failures) > 0 {
		c.printFailures(report.Failures)
	}
}

func (c *Console) printResults(report domain.ScanReport) {
	signals := make(map[string]domain.ArbitrageSignal, len(report.Signals))
	for _, s := range report.Signals {
		signals[s.MarketPairID] = s
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pair", "Matched", "Unmatched", "Skipped", "Total", "Margin", "Signal")

	for i, r := range report.Results {
		margin, verdict := "-", "none"
		if sig, ok := signals[r.MarketPairID]; ok && sig.Opportunity {
			margin = fmt.Sprintf("%.2f%%", sig.Margin*100)
			verdict = "ARB"
			if sig.Uncovered > 0 {
				verdict = "ARB*"
			}
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(r.MarketPairID, 32),
			fmt.Sprintf("%d", len(r.MatchedPairs)),
			fmt.Sprintf("%d", len(r.Unmatched)),
			fmt.Sprintf("%d", len(r.Skipped)),
			fmt.Sprintf("%.4f", r.TotalProbability),
			margin,
			verdict,
		)
	}
	table.Render()
	fmt.Fprintln(c.out, "  Total = Σ min(pA, pB) + masa no emparejada | ARB* = con outcomes sin cubrir")
}

// printOpportunity imprime las patas de cobertura con importes sobre el bankroll.
func (c *Console) printOpportunity(sig domain.ArbitrageSignal) {
	alloc := arbitrage.Allocate(sig, c.bankroll)

	fmt.Fprintf(c.out, "\n=== %s — margin %.2f%% ===\n", sig.MarketPairID, sig.Margin*100)

	table := tablewriter.NewWriter(c.out)
	table.Header("Outcome", "Venue", "Price", "Stake%", "Amount")
	for i, leg := range sig.Outcomes {
		amount := "-"
		if i < len(alloc.Legs) {
			amount = "$" + alloc.Legs[i].Amount.StringFixed(2)
		}
		table.Append(
			truncate(leg.Label, 30),
			string(leg.Venue),
			fmt.Sprintf("%.4f", leg.Probability),
			fmt.Sprintf("%.2f%%", leg.StakeFraction*100),
			amount,
		)
	}
	table.Render()

	if len(alloc.Legs) > 0 {
		fmt.Fprintf(c.out, "  Bankroll $%s → staked $%s, payout $%s, profit $%s\n",
			c.bankroll.StringFixed(2), alloc.Staked.StringFixed(2),
			alloc.Payout.StringFixed(2), alloc.Profit.StringFixed(2))
	}
	if sig.Skipped > 0 {
		fmt.Fprintf(c.out, "  ⚠ %d outcome(s) descartados por precios inválidos: confianza reducida\n", sig.Skipped)
	}
	if sig.Uncovered > 0 {
		fmt.Fprintf(c.out, "  ⚠ %.1f%% del total corresponde a outcomes sin contraparte: no cubiertos\n",
			sig.Uncovered*100)
	}
}

func (c *Console) printFailures(failures []domain.PairFailure) {
	fmt.Fprintln(c.out, "\n  Failed pairs:")
	table := tablewriter.NewWriter(c.out)
	table.Header("Pair", "Stage", "Reason")
	for _, f := range failures {
		table.Append(truncate(f.MarketPairID, 32), string(f.Stage), truncate(f.Reason(), 80))
	}
	table.Render()
}

// PrintCandidates imprime los pares sugeridos por el descubrimiento.
func (c *Console) PrintCandidates(cands []domain.Candidate) {
	if len(cands) == 0 {
		fmt.Fprintln(c.out, "no candidate pairs found")
		return
	}

	fmt.Fprintf(c.out, "\n=== CANDIDATE PAIRS (%d) ===\n", len(cands))
	table := tablewriter.NewWriter(c.out)
	table.Header("Score", "Venue A", "Market A", "Question A", "Venue B", "Market B", "Question B")
	for _, cand := range cands {
		table.Append(
			fmt.Sprintf("%.3f", cand.Score),
			string(cand.VenueA),
			cand.MarketA,
			compactName(cand.QuestionA, 40),
			string(cand.VenueB),
			cand.MarketB,
			compactName(cand.QuestionB, 40),
		)
	}
	table.Render()
	fmt.Fprintln(c.out, "  Revisa cada candidato antes de añadirlo al fichero de pares.")
}

// PrintHistory imprime el histórico persistido de pares.
func (c *Console) PrintHistory(records []domain.PairRecord) {
	if len(records) == 0 {
		fmt.Fprintln(c.out, "no history in range")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Pair", "Total", "Margin", "Peak", "Opp", "First seen", "Last seen")
	for _, r := range records {
		opp := ""
		if r.Opportunity {
			opp = "yes"
		}
		table.Append(
			truncate(r.MarketPairID, 32),
			fmt.Sprintf("%.4f", r.TotalProbability),
			fmt.Sprintf("%.2f%%", r.Margin*100),
			fmt.Sprintf("%.2f%%", r.PeakMargin*100),
			opp,
			r.FirstSeen.Local().Format("01-02 15:04"),
			r.LastSeen.Local().Format("01-02 15:04"),
		)
	}
	table.Render()
}

// --- helpers ---

func stamp(report domain.ScanReport) string {
	at := report.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}
	return at.Local().Format("15:04:05")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func compactName(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	cut := string(r[:maxLen])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
