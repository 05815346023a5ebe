package simulator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Observer is called after every round. Returning an error stops the run.
type Observer func(RoundReport) error

// Run plays rounds until every agent is finished. It stops early when ctx
// is cancelled between rounds, when observe fails, or when cfg.MaxRounds
// (if positive) rounds have been played.
func (s *Simulator) Run(ctx context.Context, observe Observer) (RoundReport, error) {
	var last RoundReport
	for !s.Complete() {
		if s.cfg.MaxRounds > 0 && s.round >= s.cfg.MaxRounds {
			return last, fmt.Errorf("%w: %d rounds", ErrRoundLimit, s.round)
		}

		report, err := s.Round(ctx)
		if err != nil {
			return report, err
		}
		last = report

		if observe != nil {
			if err := observe(report); err != nil {
				return report, fmt.Errorf("round observer failed: %w", err)
			}
		}
	}

	known, total := s.Explored()
	s.logEvent("simulation_complete", logrus.Fields{
		"rounds":         s.round,
		"explored_cells": known,
		"pathable_cells": total,
	})
	return last, nil
}
