package services

import (
	"fmt"
	"time"
)

// BusinessHoursCalculator считает длительность интервала в минутах,
// ограничиваясь рабочим окном магазина (по умолчанию 09:00-21:00 в
// бизнес-таймзоне). Ночные часы в длительность не входят.
type BusinessHoursCalculator struct {
	loc       *time.Location
	openHour  int
	closeHour int
}

// NewBusinessHoursCalculator создаёт калькулятор рабочего времени.
func NewBusinessHoursCalculator(loc *time.Location, openHour, closeHour int) *BusinessHoursCalculator {
	if loc == nil {
		loc = time.UTC
	}
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		openHour, closeHour = 9, 21
	}
	return &BusinessHoursCalculator{
		loc:       loc,
		openHour:  openHour,
		closeHour: closeHour,
	}
}

// MinutesBetween возвращает количество рабочих минут между start и end.
// Интервалы, пересекающие несколько суток, складываются из обрезанных
// по окну первого и последнего дня и полных окон промежуточных дней.
// Для перевёрнутого или пустого интервала возвращается 0.
func (c *BusinessHoursCalculator) MinutesBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}

	start = start.In(c.loc)
	end = end.In(c.loc)

	total := 0
	for day := startOfDay(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		windowStart := day.Add(time.Duration(c.openHour) * time.Hour)
		windowEnd := day.Add(time.Duration(c.closeHour) * time.Hour)

		from := windowStart
		if start.After(from) {
			from = start
		}
		to := windowEnd
		if end.Before(to) {
			to = end
		}

		if to.After(from) {
			total += int(to.Sub(from) / time.Minute)
		}
	}

	return total
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatMinutes выводит минуты в виде "XhYm" или "Ym" для интервалов короче часа.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%dm", minutes/60, minutes%60)
}
