package interfaces

import (
	"race-league-go/services"
)

// Interface compliance checks - these will fail to compile if services don't implement interfaces
var (
	_ PredictionService = (*services.PredictionService)(nil)
	_ AuthService       = (*services.AuthService)(nil)
)
