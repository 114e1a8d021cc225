package transform

import (
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowport/flowport/pkg/schema"
)

// isoDuration matches ISO-8601 durations like PT1H, P3D, P1DT12H30M.
var isoDuration = regexp.MustCompile(
	`^P(?:\d+Y)?(?:\d+M)?(?:\d+W)?(?:\d+D)?(?:T(?:\d+H)?(?:\d+M)?(?:\d+(?:\.\d+)?S)?)?$`)

// cronParser accepts the standard 5-field cron syntax vendors emit in
// timeCycle definitions, plus descriptors like @daily and @every.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// timerDeadline extracts and validates a deadline specification from a timer
// event's raw attributes (captured by the parser from timeDuration /
// timeCycle / timeDate children). The returned string is copied onto the
// target step's deadline property verbatim; validation only decides whether
// the transformer can vouch for it.
func timerDeadline(attrs map[string]string) (deadline string, valid bool) {
	if v := attrs["timeDuration"]; v != "" {
		return v, validISODuration(v)
	}
	if v := attrs["timeCycle"]; v != "" {
		return v, validCycle(v)
	}
	if v := attrs["timeDate"]; v != "" {
		_, err := time.Parse(time.RFC3339, v)
		return v, err == nil
	}
	return "", false
}

func validISODuration(v string) bool {
	if v == "P" || v == "PT" || !strings.HasPrefix(v, "P") {
		return false
	}
	return isoDuration.MatchString(v)
}

// validCycle accepts either an ISO-8601 repeating interval (R3/PT1H) or a
// cron expression, which some vendors allow in timeCycle.
func validCycle(v string) bool {
	if strings.HasPrefix(v, "R") {
		parts := strings.SplitN(v, "/", 2)
		if len(parts) != 2 {
			return false
		}
		return validISODuration(parts[1])
	}
	_, err := cronParser.Parse(v)
	return err == nil
}

// hasTimerDefinition reports whether a node carries any timer specification.
func hasTimerDefinition(node *schema.ProcessNode) bool {
	return node.RawAttributes["timeDuration"] != "" ||
		node.RawAttributes["timeCycle"] != "" ||
		node.RawAttributes["timeDate"] != ""
}
