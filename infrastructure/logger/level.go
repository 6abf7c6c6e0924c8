package logger

import "strings"

// Level is the level at which a logger is configured. All messages sent
// to a level which is below the current level are filtered.
type Level uint32

// Level constants.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

// levelTags are the tags written in log headers, indexed by level
var levelTags = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT", "OFF"}

var levelsByName = map[string]Level{
	"trace":    LevelTrace,
	"debug":    LevelDebug,
	"info":     LevelInfo,
	"warn":     LevelWarn,
	"error":    LevelError,
	"critical": LevelCritical,
	"off":      LevelOff,
}

// LevelFromString returns the level named s, either by its full name or by
// its tag, case insensitively. Unknown names yield LevelInfo and false.
func LevelFromString(s string) (Level, bool) {
	name := strings.ToLower(s)
	if level, ok := levelsByName[name]; ok {
		return level, true
	}
	for level, tag := range levelTags {
		if strings.ToLower(tag) == name {
			return Level(level), true
		}
	}
	return LevelInfo, false
}

// String returns the tag of the level, or "OFF" for anything at or above
// LevelOff
func (l Level) String() string {
	if l >= LevelOff {
		return levelTags[LevelOff]
	}
	return levelTags[l]
}
