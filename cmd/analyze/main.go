// Command analyze prints quick, human-readable heuristics about rule-set
// files in the project's configs directory. It summarizes dimensions and
// players, counts cells by neighbour count, and fires a cascade on a fully
// saturated board to show how far a chain reaction can run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
)

// AnalysisReport is the result of analysing one rule-set file
type AnalysisReport struct {
	File        string          `json:"file"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Rows        int             `json:"rows"`
	Cols        int             `json:"cols"`
	Players     []engine.Player `json:"players"`
	Cells       int             `json:"cells"`
	Degrees     map[int]int     `json:"degrees"` // neighbour count -> cells
	Probe       *CascadeProbe   `json:"probe,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// CascadeProbe describes a move on a board where one player holds every cell
// one marker short of overflowing
type CascadeProbe struct {
	Overflows  int    `json:"overflows"`
	Waves      int    `json:"waves"`
	QueueOps   int    `json:"queue_ops"`
	StockAfter int    `json:"stock_after"`
	Neutral    int    `json:"neutral_after"`
	Error      string `json:"error,omitempty"`
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze Chain Reaction rule-set files",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory scanned when no files are given", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.BoolFlag{Name: "json", Usage: "Print reports as JSON"},
			&cli.BoolFlag{Name: "no-probe", Usage: "Skip the saturated-board cascade probe"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				if files, err = configFiles(cmd.String("config-dir")); err != nil {
					return err
				}
			}

			reports := make([]*AnalysisReport, 0, len(files))
			for _, file := range files {
				report, err := analyzeConfig(file, !cmd.Bool("no-probe"))
				if err != nil {
					fmt.Fprintf(out, "\n=== %s ===\nError: %v\n", filepath.Base(file), err)
					continue
				}
				reports = append(reports, report)
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			for _, report := range reports {
				printReport(out, report)
			}
			return nil
		},
	}
}

// configFiles lists the rule-set files of dir in name order
func configFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func analyzeConfig(path string, probe bool) (*AnalysisReport, error) {
	config, err := engine.LoadGameConfig(path)
	if err != nil {
		return nil, err
	}

	grid, err := engine.NewGrid(config.Rows, config.Cols)
	if err != nil {
		return nil, err
	}

	report := &AnalysisReport{
		File:        filepath.Base(path),
		Name:        config.Name,
		Description: config.Description,
		Rows:        config.Rows,
		Cols:        config.Cols,
		Players:     config.Players,
		Cells:       config.Rows * config.Cols,
		Degrees:     engine.DegreeCounts(grid),
	}

	if report.Degrees[1] > 0 || report.Degrees[0] > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d cells have fewer than 2 neighbours; their overflows push most markers off the board", report.Degrees[0]+report.Degrees[1]))
	}
	if report.Cells < 2*len(config.Players) {
		report.Warnings = append(report.Warnings,
			"fewer than two cells per player; a winner must own at least two cells")
	}

	if probe && len(config.Players) > 0 {
		report.Probe = probeCascade(config.Rows, config.Cols, config.Players[0])
	}

	return report, nil
}

// probeCascade saturates the board for player and plays the top-left corner
func probeCascade(rows, cols int, player engine.Player) *CascadeProbe {
	grid, err := engine.NewSaturatedGrid(rows, cols, player)
	if err != nil {
		return &CascadeProbe{Error: err.Error()}
	}

	result, err := engine.ApplyMove(grid, engine.Coord{Row: 0, Col: 0}, player)
	if err != nil {
		return &CascadeProbe{Error: err.Error()}
	}

	return &CascadeProbe{
		Overflows:  len(result.Overflows),
		Waves:      result.Waves,
		QueueOps:   result.QueueOps,
		StockAfter: engine.TotalStock(grid),
		Neutral:    grid.OwnedCounts()[engine.Neutral],
	}
}

func printReport(w io.Writer, r *AnalysisReport) {
	players := make([]string, len(r.Players))
	for i, p := range r.Players {
		players[i] = string(p)
	}

	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", r.File)
	fmt.Fprintf(w, "Name: %s\n", r.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d (%d cells)\n", r.Rows, r.Cols, r.Cells)
	fmt.Fprintf(w, "Players: %s\n", strings.Join(players, ", "))

	degrees := make([]int, 0, len(r.Degrees))
	for d := range r.Degrees {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)
	for _, d := range degrees {
		fmt.Fprintf(w, "Cells with %d neighbours: %d\n", d, r.Degrees[d])
	}

	if p := r.Probe; p != nil {
		if p.Error != "" {
			fmt.Fprintf(w, "❌ Cascade probe failed: %s\n", p.Error)
		} else {
			fmt.Fprintf(w, "Saturated board probe: %d overflows in %d waves (%d queue ops), %d markers left, %d empty cells\n",
				p.Overflows, p.Waves, p.QueueOps, p.StockAfter, p.Neutral)
		}
	}

	if len(r.Warnings) == 0 {
		fmt.Fprintf(w, "✅ No issues found\n")
		return
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "⚠️  WARNING: %s\n", warning)
	}
}
