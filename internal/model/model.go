package model

import (
	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	YieldRecord           = messages.YieldRecord
	YieldEvent            = messages.YieldEvent
	SimulationRequest     = messages.SimulationRequest
	SimulationResultEvent = messages.SimulationResultEvent
	WeatherSeries         = entities.WeatherSeries
	SoilTexture           = entities.SoilTexture
)

const (
	StatusOK   = "OK"
	StatusFail = "FAIL"
)
