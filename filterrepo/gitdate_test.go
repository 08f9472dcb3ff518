package filterrepo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		input  string
		exp    Date
		expErr bool
	}{
		{input: "1618000000 +0000", exp: Date{Unix: 1618000000}},
		{input: "1618000000 +0200", exp: Date{Unix: 1618000000, Offset: 2 * time.Hour}},
		{input: "1618000000 -0430", exp: Date{Unix: 1618000000, Offset: -(4*time.Hour + 30*time.Minute)}},
		{input: "1618000000 +05:45", exp: Date{Unix: 1618000000, Offset: 5*time.Hour + 45*time.Minute}},
		{input: "1618000000 0100", exp: Date{Unix: 1618000000, Offset: time.Hour}},
		{input: "1618000000", exp: Date{Unix: 1618000000}},
		{input: "", expErr: true},
		{input: "yesterday +0000", expErr: true},
		{input: "1618000000 +01", expErr: true},
		{input: "1618000000 *0100", expErr: true},
		{input: "1618000000 +0199", expErr: true},
		{input: "1618000000 +0000 extra", expErr: true},
		{input: "1618000000 +-130", expErr: true},
		{input: "1618000000 ++100", expErr: true},
		{input: "1618000000 +01-0", expErr: true},
		{input: "1618000000 +0x10", expErr: true},
		{input: "1618000000 -1:30", expErr: true},
	}
	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			d, err := ParseDate(c.input)
			if c.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.exp, d)
		})
	}
}

func TestFormatTimezone(t *testing.T) {
	assert.Equal(t, "+0000", FormatTimezone(0))
	assert.Equal(t, "+0530", FormatTimezone(5*time.Hour+30*time.Minute))
	assert.Equal(t, "-0430", FormatTimezone(-(4*time.Hour + 30*time.Minute)))
	assert.Equal(t, "-0100", FormatTimezone(-time.Hour))
}

func TestDateRoundTrip(t *testing.T) {
	for _, s := range []string{"0 +0000", "1618000000 -0430", "1618000000 +1400", "-86400 -1200"} {
		d, err := ParseDate(s)
		require.NoError(t, err)
		assert.Equal(t, s, d.String())
	}
}

func TestDateTime(t *testing.T) {
	d := Date{Unix: 1618000000, Offset: -(4*time.Hour + 30*time.Minute)}
	tm := d.Time()
	assert.Equal(t, int64(1618000000), tm.Unix())
	_, offset := tm.Zone()
	assert.Equal(t, -16200, offset)
	assert.Equal(t, d, DateFromTime(tm))
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(Date{Unix: 1, Offset: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, `"1 +0100"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2 -0100"`), &d))
	assert.Equal(t, Date{Unix: 2, Offset: -time.Hour}, d)

	assert.Error(t, json.Unmarshal([]byte(`2`), &d))
}
