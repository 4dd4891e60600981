package welder

import (
	"context"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/history"
	"codeberg.org/mutker/weldctl/internal/protocol"
	"codeberg.org/mutker/weldctl/internal/settings"
)

// Settings returns the active settings.
func (s *Service) Settings() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// ApplySettings reloads the stored settings and sends them to the welder.
func (s *Service) ApplySettings(ctx context.Context) error {
	st, err := s.store.Load(ctx)
	if err != nil {
		return errors.New().Wrap(ErrApplySettings, err)
	}
	s.setSettings(st)

	return s.sendSettings(st)
}

// SaveSettings persists st and, when connected, sends it to the welder.
// A failed send is logged only: the settings are re-applied on the next
// connect anyway.
func (s *Service) SaveSettings(ctx context.Context, st settings.Settings) (settings.Settings, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	saved, err := s.store.Save(ctx, st)
	if err != nil {
		return settings.Settings{}, err
	}
	s.setSettings(saved)

	if s.link.Connected() {
		if err := s.sendSettings(saved); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to send saved settings")
		}
	}

	return saved, nil
}

func (s *Service) Presets(ctx context.Context) (map[string]settings.Preset, error) {
	return s.store.Presets(ctx)
}

func (s *Service) SavePreset(ctx context.Context, id string, p settings.Preset) error {
	return s.store.SavePreset(ctx, id, p)
}

// ActivatePreset makes preset id the active settings and applies it like
// SaveSettings.
func (s *Service) ActivatePreset(ctx context.Context, id string) (settings.Settings, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	st, err := s.store.ActivatePreset(ctx, id)
	if err != nil {
		return settings.Settings{}, err
	}
	s.setSettings(st)

	if s.link.Connected() {
		if err := s.sendSettings(st); err != nil {
			s.logger.Warn().Err(err).Str("preset", id).Msg("Failed to send preset")
		}
	}

	return st, nil
}

// SetPower sends a new weld power and stores it with the active settings,
// so a reconnect re-applies it instead of the old value.
func (s *Service) SetPower(ctx context.Context, pct int) error {
	return s.sendAndStore(ctx, protocol.SetPower(pct), func(st *settings.Settings) {
		st.Power = pct
	})
}

// SetPreheat sends and stores the preheat pulse like SetPower.
func (s *Service) SetPreheat(ctx context.Context, p protocol.Preheat) error {
	return s.sendAndStore(ctx, protocol.SetPreheat(p), func(st *settings.Settings) {
		st.PreheatEnabled = p.Enabled
		st.PreheatDuration = p.DurationMs
		st.PreheatPower = p.PowerPct
		st.PreheatGapMs = p.GapMs
	})
}

func (s *Service) Arm() error       { return s.link.Send(protocol.CmdArm) }
func (s *Service) Disarm() error    { return s.link.Send(protocol.CmdDisarm) }
func (s *Service) Fire() error      { return s.link.Send(protocol.CmdFire) }
func (s *Service) ChargeOn() error  { return s.link.Send(protocol.CmdChargeOn) }
func (s *Service) ChargeOff() error { return s.link.Send(protocol.CmdChargeOff) }

// History returns up to limit weld summaries, newest first.
func (s *Service) History(limit int) ([]history.Summary, error) {
	return s.history.List(limit)
}

// Weld returns one full weld record.
func (s *Service) Weld(number int) (history.Record, error) {
	return s.history.Read(number)
}

func (s *Service) ClearHistory(ctx context.Context) error {
	return s.history.Clear(ctx)
}

func (s *Service) setSettings(st settings.Settings) {
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
}

// sendAndStore sends cmd and, once the welder has it, folds the change into
// the stored settings. Nothing is stored when the send fails.
func (s *Service) sendAndStore(ctx context.Context, cmd string, update func(*settings.Settings)) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.link.Send(cmd); err != nil {
		return err
	}

	st := s.Settings()
	update(&st)
	saved, err := s.store.Save(ctx, st)
	if err != nil {
		return err
	}
	s.setSettings(saved)

	return nil
}

// sendSettings sends every settings command, continuing past failures.
func (s *Service) sendSettings(st settings.Settings) error {
	var errs []error
	for _, cmd := range st.Commands() {
		if err := s.link.Send(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.New().Wrap(ErrApplySettings, errors.Join(errs...))
	}

	s.logger.Info().
		Int("mode", st.Mode).
		Int("power", st.Power).
		Bool("preheat", st.PreheatEnabled).
		Msg("Settings applied")

	return nil
}
