// Command kvqueryctl is a demo harness for the key->value query
// engine: it seeds a Badger-backed crdtstore.Store with sample
// records, wires up a registry/optimizer/executor stack over it, and
// either runs a canned demo, a single query, or an interactive REPL,
// the same three modes cmd/datalog/main.go offers over its own engine.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/kvqueryengine/attribute"
	"github.com/wbrown/kvqueryengine/crdtstore"
	"github.com/wbrown/kvqueryengine/cursor"
	"github.com/wbrown/kvqueryengine/executor"
	"github.com/wbrown/kvqueryengine/fts"
	"github.com/wbrown/kvqueryengine/hlc"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/optimizer"
	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/querylang"
	"github.com/wbrown/kvqueryengine/registry"
)

// engine bundles everything one collection needs: the live store, its
// secondary indexes, and the optimizer/executor pair that answers
// queries against it.
type engine struct {
	store    *crdtstore.Store
	registry *registry.Registry
	fullText map[string]*fts.Index
	opt      *optimizer.Optimizer
	exec     *executor.Executor
}

func main() {
	var dbPath string
	var interactive bool
	var help bool
	var explain bool
	var queryStr string
	var orderField string
	var limit int

	flag.StringVar(&dbPath, "db", "", "badger database path")
	flag.BoolVar(&interactive, "i", false, "interactive mode")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&explain, "explain", false, "print the optimizer's plan tree before results")
	flag.StringVar(&queryStr, "query", "", "run a single query and exit")
	flag.StringVar(&orderField, "order", "", "order results by this field (prefix with - for descending)")
	flag.IntVar(&limit, "limit", 0, "limit the number of results (0 = unlimited)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [database_path]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A CRDT-backed key->value query engine demo.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nQuery syntax (EDN-style s-expressions):\n")
		fmt.Fprintf(os.Stderr, "  (eq status \"active\")\n")
		fmt.Fprintf(os.Stderr, "  (and (eq status \"active\") (gt age 25))\n")
		fmt.Fprintf(os.Stderr, "  (match bio \"engineer\")\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # run demo with default database\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i                               # interactive mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -explain -query '(eq status \"active\")'\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	if dbPath == "" && flag.NArg() > 0 {
		dbPath = flag.Arg(0)
	}
	if dbPath == "" {
		dbPath = "kvqueryengine.db"
	}

	fresh := false
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fresh = true
	}

	eng, err := openEngine(dbPath)
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}
	defer eng.store.Close()

	if fresh {
		fmt.Println("Database is empty, loading demo data...")
		seedDemoData(eng)
	}

	opts := resultOptions(orderField, limit)

	switch {
	case queryStr != "":
		runSingleQuery(eng, queryStr, explain, opts)
	case interactive:
		runInteractive(eng, explain)
	default:
		runDemo(eng)
	}
}

// openEngine opens (or creates) a Badger-backed store at path and
// builds the hash/navigable/compound/FTS indexes the demo data uses.
func openEngine(path string) (*engine, error) {
	clock := hlc.NewClock("kvqueryctl", func() int64 { return time.Now().UnixMilli() })
	store, err := crdtstore.Open(path, clock)
	if err != nil {
		return nil, err
	}

	reg := registry.New()

	statusAttr := attribute.AsValues(attribute.ByPath("status"))
	ageAttr := attribute.AsValues(attribute.ByPath("age"))
	cityAttr := attribute.AsValues(attribute.ByPath("city"))

	if err := reg.Register(index.NewHashIndex("status", statusAttr)); err != nil {
		return nil, err
	}
	if err := reg.Register(index.NewNavigableIndex("age", ageAttr)); err != nil {
		return nil, err
	}
	compound, err := index.NewCompoundIndex([]string{"city", "status"}, []attribute.Values{cityAttr, statusAttr})
	if err != nil {
		return nil, err
	}
	if err := reg.Register(compound); err != nil {
		return nil, err
	}

	ftsIdx, err := fts.New([]string{"bio"})
	if err != nil {
		return nil, err
	}
	fullText := map[string]*fts.Index{"bio": ftsIdx}

	cache, err := optimizer.NewPlanCache(256)
	if err != nil {
		return nil, err
	}
	opt := optimizer.New(optimizer.Options{Registry: reg, FullText: fullText, Cache: cache})
	exec := executor.New(executor.Options{Optimizer: opt, Registry: reg, FullText: fullText})

	return &engine{store: store, registry: reg, fullText: fullText, opt: opt, exec: exec}, nil
}

// put writes a record through the store and keeps every secondary
// index in sync, the role crdtstore.Host plays for a real multi-listener
// deployment; the demo does it directly since it has only one listener
// family per concern.
func (e *engine) put(key string, record map[string]interface{}) {
	old, existed := e.store.Get(key)
	e.store.SetLocal(key, record)
	if existed {
		e.registry.OnRecordUpdated(key, old, record)
	} else {
		e.registry.OnRecordAdded(key, record)
	}
	if idx, ok := e.fullText["bio"]; ok {
		_ = idx.OnSet(key, record)
	}
}

func seedDemoData(e *engine) {
	fmt.Println("\nSeeding demo records...")
	people := []struct {
		key    string
		record map[string]interface{}
	}{
		{"p1", map[string]interface{}{"name": "Alice", "age": int64(30), "city": "New York", "status": "active", "bio": "Senior backend engineer who loves distributed systems"}},
		{"p2", map[string]interface{}{"name": "Bob", "age": int64(25), "city": "Boston", "status": "active", "bio": "Frontend engineer, occasional baker"}},
		{"p3", map[string]interface{}{"name": "Charlie", "age": int64(35), "city": "New York", "status": "inactive", "bio": "Staff engineer focused on infrastructure"}},
		{"p4", map[string]interface{}{"name": "Dana", "age": int64(28), "city": "New York", "status": "active", "bio": "Product manager and former baker"}},
	}
	for _, p := range people {
		e.put(p.key, p.record)
	}
	fmt.Printf("Seeded %d records\n", len(people))
}

func resultOptions(orderField string, limit int) executor.QueryOptions {
	opts := executor.QueryOptions{}
	if orderField != "" {
		ascending := true
		field := orderField
		if strings.HasPrefix(field, "-") {
			ascending = false
			field = field[1:]
		}
		opts.Order = &queryast.Ordering{Field: field, Ascending: ascending}
	}
	if limit > 0 {
		opts.Limit = &limit
	}
	return opts
}

func runDemo(e *engine) {
	fmt.Println(color.GreenString("=== Key->Value Query Engine Demo ==="))

	queries := []string{
		`(eq status "active")`,
		`(and (eq status "active") (gt age 26))`,
		`(eq city "New York")`,
		`(and (eq city "New York") (eq status "active"))`,
		`(match bio "engineer")`,
		`(or (match bio "engineer") (match bio "baker"))`,
	}

	for _, qs := range queries {
		fmt.Println()
		fmt.Println(color.CyanString("Query: ") + qs)
		runQueryAndPrint(e, qs, true, executor.QueryOptions{})
	}
}

func runSingleQuery(e *engine, queryStr string, explain bool, opts executor.QueryOptions) {
	fmt.Println(color.CyanString("Query: ") + queryStr)
	runQueryAndPrint(e, queryStr, explain, opts)
}

func runInteractive(e *engine, explain bool) {
	fmt.Println(color.GreenString("=== Key->Value Query Engine Interactive Mode ==="))
	fmt.Println("Commands:")
	fmt.Println("  .help       - show help")
	fmt.Println("  .exit       - exit")
	fmt.Println("  .explain    - toggle plan explanation")
	fmt.Println("  .put k k1=v1 k2=v2 ... - upsert a record")
	fmt.Println("  (eq attr val) ...      - run a query")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ".exit":
			return
		case line == ".help":
			fmt.Println("Enter an s-expression query, or .put/.explain/.exit")
		case line == ".explain":
			explain = !explain
			fmt.Printf("explain = %v\n", explain)
		case strings.HasPrefix(line, ".put "):
			handlePut(e, strings.TrimPrefix(line, ".put "))
		default:
			runQueryAndPrint(e, line, explain, executor.QueryOptions{})
		}
	}
}

func handlePut(e *engine, rest string) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		fmt.Println("Expected: .put <key> field=value ...")
		return
	}
	key := fields[0]
	record := make(map[string]interface{})
	for _, kv := range fields[1:] {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			fmt.Printf("Skipping malformed field %q\n", kv)
			continue
		}
		record[parts[0]] = parts[1]
	}
	e.put(key, record)
	fmt.Printf("Stored %s\n", key)
}

func runQueryAndPrint(e *engine, queryStr string, explain bool, opts executor.QueryOptions) {
	q, err := querylang.Parse(queryStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Parse error: %v", err))
		return
	}

	if explain {
		plan, err := e.opt.Optimize(q)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("Plan error: %v", err))
			return
		}
		fmt.Print(color.YellowString(optimizer.Explain(plan)))
	}

	snapshot := executor.Snapshot(e.store.Snapshot())
	universe := executor.SnapshotUniverse(snapshot)

	start := time.Now()
	resp, err := e.exec.Execute(snapshot, universe, q, opts)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Execution error: %v", err))
		return
	}

	fmt.Print(formatRows(resp.Rows))
	fmt.Printf("\n_%d rows (%.3fms)_\n", len(resp.Rows), float64(elapsed.Microseconds())/1000.0)
	if resp.HasMore {
		fmt.Printf("more results available, next cursor: %s\n", resp.NextCursor)
	}
	if resp.CursorStatus == cursor.StatusInvalid || resp.CursorStatus == cursor.StatusExpired {
		fmt.Fprintln(os.Stderr, color.RedString("cursor status: %s", resp.CursorStatus))
	}
}

// formatRows renders rows as a markdown table, the same shape
// datalog/executor/table_formatter.go renders a Relation in, adapted
// from fixed Datalog columns to this engine's dynamic per-record
// field union (plus an optional trailing _score column).
func formatRows(rows []executor.Row) string {
	if len(rows) == 0 {
		return "_No rows_\n"
	}

	columns := collectColumns(rows)
	scored := false
	for _, r := range rows {
		if r.Score != nil {
			scored = true
			break
		}
	}

	sb := &strings.Builder{}
	headers := append([]string{"key"}, columns...)
	if scored {
		headers = append(headers, "_score")
	}

	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)

	for _, r := range rows {
		row := make([]string, 0, len(headers))
		row = append(row, r.Key)
		for _, col := range columns {
			row = append(row, formatValue(r.Record[col]))
		}
		if scored {
			if r.Score != nil {
				row = append(row, fmt.Sprintf("%.4f", *r.Score))
			} else {
				row = append(row, "")
			}
		}
		table.Append(row)
	}
	table.Render()
	return sb.String()
}

func collectColumns(rows []executor.Row) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, r := range rows {
		for k := range r.Record {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	return columns
}

func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
