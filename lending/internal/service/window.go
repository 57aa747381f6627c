package service

import (
	"time"

	"github.com/Astemirdum/lending-service/lending/internal/model"
)

const (
	lastMonthBackDays  = 28
	lastMonthAheadDays = 2
)

// LastMonthWindow returns [today-28d, today+2d). The end lies past today so
// rows dated today are always inside the window.
func LastMonthWindow(today time.Time) model.DateWindow {
	return model.DateWindow{
		Start: model.AddDays(today, -lastMonthBackDays),
		End:   model.AddDays(today, lastMonthAheadDays),
	}
}
