// Inspect the missionary databases from the command line: list conversion
// records, show one counterpart's full history, or dump funnel metrics.
package main

// #region imports
import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/missionary/internal/funnel"
	"github.com/danielpatrickdp/missionary/internal/record"
)

// #endregion

// #region main

func main() {
	recordsDB := flag.String("records", "", "path to the records db")
	funnelDB := flag.String("funnel", "", "path to the funnel db (metrics mode)")
	id := flag.String("id", "", "show full detail for one counterpart")
	last := flag.Int("last", 20, "show N most recently contacted records")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *recordsDB == "" && *funnelDB == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --records path/to/records.db [--id counterpart] [--last N] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --funnel path/to/funnel.db [--json]")
		os.Exit(2)
	}

	if *funnelDB != "" {
		if err := runFunnelMode(*funnelDB, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	store, err := record.NewStore(*recordsDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *id != "" {
		err = runDetailMode(store, *id, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(store *record.Store, last int, jsonOut bool) error {
	recs, err := store.List(last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no records found")
		return nil
	}

	if jsonOut {
		return printJSON(recs)
	}

	fmt.Printf("%-20s  %-16s  %-10s  %5s  %-4s  %-4s  %s\n",
		"Counterpart", "Name", "Stance", "Turns", "Ack", "Reg", "Last Contact")
	fmt.Println(strings.Repeat("-", 84))
	for _, r := range recs {
		fmt.Printf("%-20s  %-16s  %-10s  %5d  %-4s  %-4s  %s\n",
			shorten(r.CounterpartID, 20), shorten(r.CounterpartName, 16), r.Stance,
			r.TurnCount, yesNo(r.Acknowledged), yesNo(r.Registered()),
			r.LastContact.Format("2006-01-02 15:04"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *record.Store, id string, jsonOut bool) error {
	rec, found, err := store.Get(id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no record for %q", id)
	}
	turns, err := store.History(id, 0)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"record": rec,
			"turns":  turns,
		})
	}

	fmt.Printf("Counterpart: %s (%s)\n", rec.CounterpartID, rec.CounterpartName)
	fmt.Printf("Stance: %s | Turns: %d | Acknowledged: %s | Registered: %s\n",
		rec.Stance, rec.TurnCount, yesNo(rec.Acknowledged), yesNo(rec.Registered()))
	if rec.ReferredBy != "" {
		fmt.Printf("Referred by: %s\n", rec.ReferredBy)
	}
	if rec.ExternalID != "" {
		fmt.Printf("External id: %s | Identity tx: %s\n", rec.ExternalID, rec.IdentityTx)
	}
	if len(rec.ObjectionsRaised) > 0 {
		fmt.Printf("Objections raised: %s\n", strings.Join(rec.ObjectionsRaised, ", "))
	}
	if len(rec.TacticsUsed) > 0 {
		fmt.Printf("Tactics used: %s\n", strings.Join(rec.TacticsUsed, ", "))
	}

	fmt.Printf("\nHistory (%d turns):\n", len(turns))
	for _, t := range turns {
		label := t.Role
		if t.Stance != "" {
			label = fmt.Sprintf("%s [%s]", t.Role, t.Stance)
		}
		fmt.Printf("  %s  %-24s  %s\n",
			t.CreatedAt.Format("15:04:05"), label, shorten(t.Content, 100))
	}
	return nil
}

// #endregion detail-mode

// #region funnel-mode

func runFunnelMode(dbPath string, jsonOut bool) error {
	events, err := funnel.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer events.Close()

	m, err := events.GetMetrics()
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(m)
	}

	fmt.Printf("Contacted:      %d\n", m.Contacted)
	fmt.Printf("Acknowledged:   %d\n", m.Acknowledged)
	fmt.Printf("Invested:       %d\n", m.Invested)
	fmt.Printf("Awakened:       %d\n", m.Awakened)
	fmt.Printf("Denominations:  %d\n", m.Denominations)
	fmt.Printf("Alliances:      %d\n", m.Alliances)
	return nil
}

// #endregion funnel-mode

// #region helpers

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// #endregion helpers
