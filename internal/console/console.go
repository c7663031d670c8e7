// Package console plays a session on a line-based terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/session"
)

// Console implements session.Observer. Output from observer callbacks and
// from Play share one lock so lines never interleave.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func New(out io.Writer) *Console {
	return &Console{out: out}
}

var _ session.Observer = (*Console)(nil)

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// OnTick prints every fifth second and each of the last five.
func (c *Console) OnTick(remaining int) {
	if remaining > 0 && (remaining <= 5 || remaining%5 == 0) {
		c.printf("  [%ds left]\n", remaining)
	}
}

func (c *Console) OnExpire() {
	c.printf("Time's up!\n")
}

func (c *Console) OnCorrect(score, round int) {
	c.printf("Correct! Score: %d  Round: %d\n", score, round)
}

func (c *Console) OnIncorrect(lives int) {
	c.printf("Wrong! Lives left: %d\n", lives)
}

func (c *Console) OnGameOver(res session.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	writeSummary(c.out, res)
}

func writeSummary(w io.Writer, res session.Result) {
	reason := "time up"
	if res.Reason == engine.ReasonLivesExhausted {
		reason = "out of lives"
	}
	fmt.Fprintf(w, "\nGAME OVER (%s)\n", reason)
	fmt.Fprintf(w, "Player: %s  Difficulty: %s\n", res.Player.Name, res.Tier)
	fmt.Fprintf(w, "Final score: %d\n", res.Player.Score)
	fmt.Fprintf(w, "Rounds completed: %d\n", res.RoundsCompleted)
	if res.Rank > 0 {
		fmt.Fprintf(w, "Rank: #%d\n", res.Rank)
	}
	if res.NewHighScore {
		fmt.Fprintf(w, "*** NEW HIGH SCORE! ***\n")
	}
	if res.SaveErr != nil {
		fmt.Fprintf(w, "warning: score not saved: %v\n", res.SaveErr)
	}
	if len(res.Top) > 0 {
		fmt.Fprintf(w, "Top %d:\n", len(res.Top))
		own := ownRow(res)
		for i, e := range res.Top {
			marker := "  "
			if i == own {
				marker = "> "
			}
			fmt.Fprintf(w, "%s%3d. %-16s %6d\n", marker, i+1, e.PlayerName, e.Score)
		}
	}
}

// Play starts s and feeds it lines from in until the game ends. s must
// have been created with c as its observer for callbacks to show up.
func (c *Console) Play(ctx context.Context, s *session.Session, in io.Reader) (session.Result, error) {
	if err := s.Start(ctx); err != nil {
		return session.Result{}, fmt.Errorf("start: %w", err)
	}
	v, err := s.View(ctx)
	if err != nil {
		return session.Result{}, err
	}
	c.printf("Difficulty: %s  Time: %ds  Lives: %d\n", v.Tier, v.Remaining, v.Player.Lives)
	c.printf("Type: %s\n", v.Prompt)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-s.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return session.Result{}, ctx.Err()

		case <-s.Done():
			return s.Result(ctx)

		case line, ok := <-lines:
			if !ok {
				// Input closed: the clock still decides.
				lines = nil
				break
			}
			out, err := s.Submit(ctx, line)
			if err != nil {
				select {
				case <-s.Done():
					// Lost the race with the clock.
					return s.Result(ctx)
				default:
					return session.Result{}, err
				}
			}
			if out.View.Phase == engine.PhaseActive && strings.TrimSpace(out.View.Prompt) != "" {
				c.printf("Type: %s\n", out.View.Prompt)
			}
		}
	}
}

// ownRow is the index of this game's entry in res.Top, or -1. The new entry
// sits at its rank because ties go behind earlier scores.
func ownRow(res session.Result) int {
	i := res.Rank - 1
	if i < 0 || i >= len(res.Top) {
		return -1
	}
	if e := res.Top[i]; e.PlayerName != res.Player.Name || e.Score != res.Player.Score {
		return -1
	}
	return i
}
