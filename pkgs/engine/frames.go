package engine

import (
	"github.com/aledsdavies/obmm/pkgs/expr"
	"github.com/aledsdavies/obmm/pkgs/token"
)

// frame is one open flow block. Tokens are immutable, so everything a block
// learns while running lives here.
type frame struct {
	kind    token.Type
	line    int
	active  bool
	skipped bool // opened inside an inactive block; never evaluated

	loop *loop // For

	// Select, SelectVar and SelectString
	many      bool
	results   []string
	foundCase bool // single select: a Case already matched
	matched   bool // any Case matched; decides Default
}

// loop is the iteration state of a For frame
type loop struct {
	variable string
	start    int  // index of the first body token
	exit     bool // deactivated by Exit rather than Continue

	// Count
	count   bool
	current int64
	end     int64
	step    int64

	// Each
	sequence []string
	index    int
}

// next advances the loop and returns the new value of the loop variable, or
// false when the loop is finished.
func (l *loop) next() (string, bool) {
	if l.count {
		n := l.current + l.step
		if (l.step > 0 && n >= l.end) || (l.step < 0 && n <= l.end) {
			return "", false
		}
		l.current = n
		return expr.FormatInt(n), true
	}
	if l.index+1 >= len(l.sequence) {
		return "", false
	}
	l.index++
	return l.sequence[l.index], true
}

// stack is the flow-control stack of a run
type stack struct {
	frames   []*frame
	pushes   int
	pops     int
	maxDepth int
}

func (s *stack) push(f *frame) {
	s.frames = append(s.frames, f)
	s.pushes++
	if len(s.frames) > s.maxDepth {
		s.maxDepth = len(s.frames)
	}
}

func (s *stack) pop() *frame {
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.pops++
	return f
}

func (s *stack) top() *frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *stack) empty() bool {
	return len(s.frames) == 0
}

// blocked reports whether any of the lowest n frames is inactive
func (s *stack) blocked(n int) bool {
	for _, f := range s.frames[:n] {
		if !f.active {
			return true
		}
	}
	return false
}

// innermostLoop returns the nearest For frame, or nil
func (s *stack) innermostLoop() *frame {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].kind == token.For {
			return s.frames[i]
		}
	}
	return nil
}
