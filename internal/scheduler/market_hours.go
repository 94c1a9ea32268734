package scheduler

import (
	"time"

	"github.com/rs/zerolog"
)

// TradingWindow represents a single trading period within a day
type TradingWindow struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// ExchangeCalendar defines trading hours and holidays for an exchange
type ExchangeCalendar struct {
	Code           string
	Name           string
	TimezoneStr    string
	Timezone       *time.Location
	TradingWindows []TradingWindow
	Holidays       []time.Time
}

// MarketHoursService provides market status for the Vietnamese
// exchanges. All three share one timezone and holiday calendar; they
// differ only in afternoon close times.
type MarketHoursService struct {
	calendars map[string]*ExchangeCalendar
	log       zerolog.Logger
}

// NewMarketHoursService creates a new market hours service
func NewMarketHoursService(log zerolog.Logger) *MarketHoursService {
	service := &MarketHoursService{
		calendars: make(map[string]*ExchangeCalendar),
		log:       log.With().Str("component", "market_hours").Logger(),
	}

	service.initializeCalendars()
	return service
}

// initializeCalendars sets up trading hours and holidays for HOSE, HNX
// and UPCOM.
func (s *MarketHoursService) initializeCalendars() {
	vnLoc, _ := time.LoadLocation("Asia/Ho_Chi_Minh")

	// Tet and the lunar-calendar holidays move each year; these are the
	// 2026 observed dates.
	vnHolidays := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, vnLoc),  // New Year's Day
		time.Date(2026, 2, 16, 0, 0, 0, 0, vnLoc), // Tet holiday
		time.Date(2026, 2, 17, 0, 0, 0, 0, vnLoc), // Lunar New Year
		time.Date(2026, 2, 18, 0, 0, 0, 0, vnLoc), // Tet holiday
		time.Date(2026, 2, 19, 0, 0, 0, 0, vnLoc), // Tet holiday
		time.Date(2026, 2, 20, 0, 0, 0, 0, vnLoc), // Tet holiday
		time.Date(2026, 4, 26, 0, 0, 0, 0, vnLoc), // Hung Kings Commemoration
		time.Date(2026, 4, 30, 0, 0, 0, 0, vnLoc), // Reunification Day
		time.Date(2026, 5, 1, 0, 0, 0, 0, vnLoc),  // Labor Day
		time.Date(2026, 9, 2, 0, 0, 0, 0, vnLoc),  // National Day
		time.Date(2026, 9, 3, 0, 0, 0, 0, vnLoc),  // National Day holiday
	}

	// HOSE: continuous sessions 9:00-11:30 and 13:00-14:45, closing
	// auction until 15:00 excluded on purpose.
	s.calendars["HOSE"] = &ExchangeCalendar{
		Code:        "XSTC",
		Name:        "HOSE",
		TimezoneStr: "Asia/Ho_Chi_Minh",
		Timezone:    vnLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 11, CloseMinute: 30},
			{OpenHour: 13, OpenMinute: 0, CloseHour: 14, CloseMinute: 45},
		},
		Holidays: vnHolidays,
	}

	s.calendars["HNX"] = &ExchangeCalendar{
		Code:        "XHNX",
		Name:        "HNX",
		TimezoneStr: "Asia/Ho_Chi_Minh",
		Timezone:    vnLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 11, CloseMinute: 30},
			{OpenHour: 13, OpenMinute: 0, CloseHour: 14, CloseMinute: 45},
		},
		Holidays: vnHolidays,
	}

	// UPCOM trades through to 15:00 with no closing auction.
	s.calendars["UPCOM"] = &ExchangeCalendar{
		Code:        "UPCM",
		Name:        "UPCOM",
		TimezoneStr: "Asia/Ho_Chi_Minh",
		Timezone:    vnLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 11, CloseMinute: 30},
			{OpenHour: 13, OpenMinute: 0, CloseHour: 15, CloseMinute: 0},
		},
		Holidays: vnHolidays,
	}

	s.log.Info().Int("calendars", len(s.calendars)).Msg("Market hours calendars initialized")
}

// GetCalendar returns the calendar for an exchange name
func (s *MarketHoursService) GetCalendar(exchangeName string) *ExchangeCalendar {
	if cal, ok := s.calendars[exchangeName]; ok {
		return cal
	}

	s.log.Warn().Str("exchange", exchangeName).Msg("Unknown exchange, defaulting to HOSE")
	return s.calendars["HOSE"]
}

// IsTradingDay reports whether the given instant falls on a session
// day (weekday, not a holiday) for an exchange.
func (s *MarketHoursService) IsTradingDay(exchangeName string, at time.Time) bool {
	cal := s.GetCalendar(exchangeName)
	local := at.In(cal.Timezone)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, cal.Timezone)
	for _, holiday := range cal.Holidays {
		if holiday.Equal(day) {
			return false
		}
	}
	return true
}

// IsMarketOpen checks if a market is currently in a trading session
func (s *MarketHoursService) IsMarketOpen(exchangeName string) bool {
	cal := s.GetCalendar(exchangeName)
	now := time.Now().In(cal.Timezone)

	if !s.IsTradingDay(exchangeName, now) {
		return false
	}

	currentMinutes := now.Hour()*60 + now.Minute()
	for _, window := range cal.TradingWindows {
		openMinutes := window.OpenHour*60 + window.OpenMinute
		closeMinutes := window.CloseHour*60 + window.CloseMinute

		if currentMinutes >= openMinutes && currentMinutes < closeMinutes {
			return true
		}
	}

	return false
}

// MarketStatus represents the status of a market
type MarketStatus struct {
	Exchange string `json:"exchange"`
	IsOpen   bool   `json:"is_open"`
	Timezone string `json:"timezone"`
}

// GetAllMarketStatuses returns status for all configured markets
func (s *MarketHoursService) GetAllMarketStatuses() []MarketStatus {
	statuses := make([]MarketStatus, 0, len(s.calendars))
	seen := make(map[string]bool)

	for name, cal := range s.calendars {
		if seen[cal.Code] {
			continue
		}
		seen[cal.Code] = true

		statuses = append(statuses, MarketStatus{
			Exchange: name,
			IsOpen:   s.IsMarketOpen(name),
			Timezone: cal.TimezoneStr,
		})
	}

	return statuses
}
