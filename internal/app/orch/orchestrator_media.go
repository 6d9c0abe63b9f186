package orch

import "github.com/dkeye/parley/internal/app"

func (o *Orchestrator) ToggleVoice() { o.Post(app.ToggleVoice{}) }

func (o *Orchestrator) StopVoice() { o.Post(app.StopVoice{}) }

func (o *Orchestrator) CancelVoice() { o.Post(app.CancelVoice{}) }
