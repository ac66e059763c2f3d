package exerciser

import (
	"fmt"
	"io"
	"sync"

	"github.com/olekukonko/tablewriter"

	"kvaccel/driver"
	"kvaccel/regs"
)

type statKey struct {
	op     regs.Op
	status driver.Status
}

// Stats counts command outcomes. It is safe for concurrent use.
type Stats struct {
	mu       sync.Mutex
	counts   map[statKey]int
	timeouts int
}

func NewStats() *Stats {
	return &Stats{counts: make(map[statKey]int)}
}

// Record counts one command. Timeouts are kept apart from device errors.
func (s *Stats) Record(op regs.Op, status driver.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.timeouts++
		return
	}
	s.counts[statKey{op, status}]++
}

func (s *Stats) Count(op regs.Op, status driver.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[statKey{op, status}]
}

func (s *Stats) Timeouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeouts
}

// Total returns the number of recorded commands, timeouts included.
func (s *Stats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.timeouts
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Render writes a per op table of outcomes.
func (s *Stats) Render(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Op", "Ok", "Miss", "Error"})
	total := [3]int{}
	for _, op := range []regs.Op{regs.OpRead, regs.OpUpsert, regs.OpDelete} {
		ok := s.counts[statKey{op, driver.StatusOK}]
		miss := s.counts[statKey{op, driver.StatusMiss}]
		bad := s.counts[statKey{op, driver.StatusError}]
		total[0] += ok
		total[1] += miss
		total[2] += bad
		table.Append([]string{op.String(), fmt.Sprint(ok), fmt.Sprint(miss), fmt.Sprint(bad)})
	}
	table.SetFooter([]string{
		fmt.Sprintf("Timeouts %d", s.timeouts),
		fmt.Sprint(total[0]), fmt.Sprint(total[1]), fmt.Sprint(total[2]),
	})
	table.Render()
}
