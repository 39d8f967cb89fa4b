package process

import (
	"errors"
	"fmt"
)

// Stack runs a list of processors in order.
type Stack struct {
	ids        []string
	processors []GridProcessor
}

// Len returns the number of processors.
func (s *Stack) Len() int { return len(s.processors) }

func (s *Stack) each(f func(p GridProcessor) error) error {
	for i, p := range s.processors {
		if err := f(p); err != nil {
			return fmt.Errorf("%s: %w", s.ids[i], err)
		}
	}
	return nil
}

func (s *Stack) Prepare(env *Env) error {
	return s.each(func(p GridProcessor) error { return p.Prepare(env) })
}

func (s *Stack) OnProcessBefore() error {
	return s.each(GridProcessor.OnProcessBefore)
}

func (s *Stack) OnLatitudeStart(lat float64) error {
	return s.each(func(p GridProcessor) error { return p.OnLatitudeStart(lat) })
}

func (s *Stack) OnModelPoint(lat, lon float64) error {
	for i, p := range s.processors {
		if err := p.OnModelPoint(lat, lon); err != nil {
			return fmt.Errorf("%s: %w", s.ids[i], err)
		}
	}
	return nil
}

func (s *Stack) OnLatitudeEnd(lat float64) error {
	return s.each(func(p GridProcessor) error { return p.OnLatitudeEnd(lat) })
}

func (s *Stack) OnProcessAfter() error {
	return s.each(GridProcessor.OnProcessAfter)
}

// Dispose disposes every processor and returns the joined errors.
func (s *Stack) Dispose() error {
	var errs []error
	for i, p := range s.processors {
		if err := p.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.ids[i], err))
		}
	}
	return errors.Join(errs...)
}
