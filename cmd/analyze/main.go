// Command analyze prints quick, human-readable statistics about the match archive
// written by the server (data/matches/*.jsonl.zst). It summarizes how many matches
// were played, how humans fared against AI trains, the best scores ever reached and
// who wins most often.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/train-rush/game/history"
)

// topN bounds the score and winner tables
const topN = 5

// Summary aggregates a set of matches
type Summary struct {
	Matches   int
	Players   int
	Humans    int
	HumanWins int
	AIWins    int
	NoWinner  int

	AverageScore    float64
	AverageDuration time.Duration
	AverageWidth    float64
	First, Last     time.Time

	TopScores []history.PlayerResult
	Winners   []WinCount
}

// WinCount is the number of matches a name won
type WinCount struct {
	Name string
	Wins int
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize the Train Rush match archive",
		ArgsUsage: "[archive-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				dir = "data/matches"
			}
			return analyzeDir(os.Stdout, dir)
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

// analyzeDir reads every archive file in dir and prints the summary
func analyzeDir(w io.Writer, dir string) error {
	files, err := history.ArchiveFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no match archives found in %s", dir)
	}

	fmt.Fprintf(w, "\n=== Analyzing %d archive files in %s ===\n", len(files), dir)
	matches, err := history.ReadArchiveDir(dir)
	if err != nil {
		// Keep what was decoded before the damaged line
		fmt.Fprintf(w, "Warning: %v\n", err)
	}
	printSummary(w, summarize(matches))
	return nil
}

func summarize(matches []history.Match) Summary {
	var s Summary
	var totalScore int
	var totalDuration float64
	var totalWidth int
	wins := map[string]int{}

	for _, m := range matches {
		s.Matches++
		totalDuration += m.Duration
		totalWidth += m.Width
		if s.First.IsZero() || m.EndedAt.Before(s.First) {
			s.First = m.EndedAt
		}
		if m.EndedAt.After(s.Last) {
			s.Last = m.EndedAt
		}

		for _, p := range m.Players {
			s.Players++
			totalScore += p.Score
			if p.Human {
				s.Humans++
			}
			s.TopScores = append(s.TopScores, p)
		}

		if m.Winner == "" {
			s.NoWinner++
			continue
		}
		wins[m.Winner]++
		if winnerIsHuman(m) {
			s.HumanWins++
		} else {
			s.AIWins++
		}
	}

	if s.Players > 0 {
		s.AverageScore = float64(totalScore) / float64(s.Players)
	}
	if s.Matches > 0 {
		s.AverageDuration = time.Duration(totalDuration / float64(s.Matches) * float64(time.Second))
		s.AverageWidth = float64(totalWidth) / float64(s.Matches)
	}

	sort.SliceStable(s.TopScores, func(i, j int) bool {
		return s.TopScores[i].Score > s.TopScores[j].Score
	})
	if len(s.TopScores) > topN {
		s.TopScores = s.TopScores[:topN]
	}

	for name, n := range wins {
		s.Winners = append(s.Winners, WinCount{Name: name, Wins: n})
	}
	sort.Slice(s.Winners, func(i, j int) bool {
		if s.Winners[i].Wins != s.Winners[j].Wins {
			return s.Winners[i].Wins > s.Winners[j].Wins
		}
		return s.Winners[i].Name < s.Winners[j].Name
	})
	if len(s.Winners) > topN {
		s.Winners = s.Winners[:topN]
	}
	return s
}

func winnerIsHuman(m history.Match) bool {
	for _, p := range m.Players {
		if p.Name == m.Winner {
			return p.Human
		}
	}
	return false
}

func printSummary(w io.Writer, s Summary) {
	if s.Matches == 0 {
		fmt.Fprintln(w, "No matches recorded")
		return
	}

	fmt.Fprintf(w, "Matches: %d (%s to %s)\n", s.Matches,
		s.First.UTC().Format(time.DateTime), s.Last.UTC().Format(time.DateTime))
	fmt.Fprintf(w, "Participants: %d (%d human, %d AI)\n", s.Players, s.Humans, s.Players-s.Humans)
	fmt.Fprintf(w, "Average score: %.2f\n", s.AverageScore)
	fmt.Fprintf(w, "Average duration: %s\n", s.AverageDuration.Round(time.Second))
	fmt.Fprintf(w, "Average world width: %.1f\n", s.AverageWidth)
	fmt.Fprintf(w, "Wins: %d human, %d AI, %d without a winner\n", s.HumanWins, s.AIWins, s.NoWinner)

	if s.Humans > 0 && s.HumanWins == 0 && s.AIWins > 0 {
		fmt.Fprintln(w, "Warning: humans never won; the AI may be too strong for this profile")
	}

	fmt.Fprintln(w, "Top scores:")
	for i, p := range s.TopScores {
		kind := "AI"
		if p.Human {
			kind = "human"
		}
		fmt.Fprintf(w, "  %d. %s (%s) %d\n", i+1, p.Name, kind, p.Score)
	}

	fmt.Fprintln(w, "Most wins:")
	for _, wc := range s.Winners {
		fmt.Fprintf(w, "  %s: %d\n", wc.Name, wc.Wins)
	}
}
