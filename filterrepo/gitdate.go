package filterrepo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a git timestamp: seconds since the epoch and the author's UTC offset.
type Date struct {
	Unix   int64
	Offset time.Duration
}

// ParseDate parses a git date such as "1618000000 -0430".
// A missing timezone means +0000.
func ParseDate(s string) (Date, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return Date{}, fmt.Errorf("%q is an invalid git date", s)
	}
	unix, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Date{}, fmt.Errorf("%q is an invalid git date: %w", s, err)
	}
	d := Date{Unix: unix}
	if len(fields) == 2 {
		d.Offset, err = ParseTimezone(fields[1])
		if err != nil {
			return Date{}, err
		}
	}
	return d, nil
}

// ParseTimezone parses a git timezone. "+hhmm", "-hhmm", "+hh:mm" and an unsigned "hhmm" are accepted.
func ParseTimezone(s string) (time.Duration, error) {
	tz := strings.Replace(s, ":", "", 1)
	if len(tz) == 4 {
		tz = "+" + tz
	}
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') || !digits(tz[1:]) {
		return 0, fmt.Errorf("%q is an invalid git timezone", s)
	}
	hours := int(tz[1]-'0')*10 + int(tz[2]-'0')
	minutes := int(tz[3]-'0')*10 + int(tz[4]-'0')
	if minutes >= 60 {
		return 0, fmt.Errorf("%q is an invalid git timezone", s)
	}
	offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if tz[0] == '-' {
		offset = -offset
	}
	return offset, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatTimezone formats an offset as git does, e.g. "-0430".
func FormatTimezone(offset time.Duration) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	hours := int(offset / time.Hour)
	minutes := int(offset % time.Hour / time.Minute)
	return fmt.Sprintf("%c%02d%02d", sign, hours, minutes)
}

func (d Date) String() string {
	return fmt.Sprintf("%d %s", d.Unix, FormatTimezone(d.Offset))
}

// Time returns the date in its own timezone.
func (d Date) Time() time.Time {
	return time.Unix(d.Unix, 0).In(time.FixedZone(FormatTimezone(d.Offset), int(d.Offset/time.Second)))
}

func DateFromTime(t time.Time) Date {
	_, offset := t.Zone()
	return Date{Unix: t.Unix(), Offset: time.Duration(offset) * time.Second}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
