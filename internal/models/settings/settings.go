package settings

import (
	"encoding/json"

	"taskPlanner/internal/models/task"
)

type DateFormat string
type TimeFormat string

const DateUS DateFormat = "MM/DD/YYYY"
const DateEU DateFormat = "DD/MM/YYYY"
const DateISO DateFormat = "YYYY-MM-DD"

const Time12h TimeFormat = "12h"
const Time24h TimeFormat = "24h"

type Settings struct {
	DateFormat           DateFormat    `json:"dateFormat"`
	TimeFormat           TimeFormat    `json:"timeFormat"`
	DefaultPriority      task.Priority `json:"defaultPriority"`
	DefaultEstimatedTime int           `json:"defaultEstimatedTime"`
}

func Defaults() Settings {
	return Settings{
		DateFormat:           DateEU,
		TimeFormat:           Time24h,
		DefaultPriority:      task.PriorityMedium,
		DefaultEstimatedTime: 60,
	}
}

func ValidDateFormat(f DateFormat) bool {
	return f == DateUS || f == DateEU || f == DateISO
}

func ValidTimeFormat(f TimeFormat) bool {
	return f == Time12h || f == Time24h
}

// Merge накладывает частично сохранённые настройки поверх дефолтных,
// чтобы поля новых версий не оставались пустыми
func Merge(raw json.RawMessage) (Settings, error) {
	merged := Defaults()
	if len(raw) == 0 {
		return merged, nil
	}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return Defaults(), err
	}
	if !ValidDateFormat(merged.DateFormat) {
		merged.DateFormat = Defaults().DateFormat
	}
	if !ValidTimeFormat(merged.TimeFormat) {
		merged.TimeFormat = Defaults().TimeFormat
	}
	if !task.ValidPriority(merged.DefaultPriority) {
		merged.DefaultPriority = Defaults().DefaultPriority
	}
	if merged.DefaultEstimatedTime <= 0 {
		merged.DefaultEstimatedTime = Defaults().DefaultEstimatedTime
	}
	return merged, nil
}
