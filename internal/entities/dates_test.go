package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"iso", "seen on 2018-02-14", []string{"2018-02-14"}},
		{"us", "visit 3/7/2021 and 03/07/2021", []string{"2021-03-07"}},
		{"month name", "Feb 14th, 2018 and September 3 2020", []string{"2018-02-14", "2020-09-03"}},
		{"invalid dropped", "2018-02-30 and 13/40/2020", []string{}},
		{"sorted", "2020-01-01 then 2019-06-30", []string{"2019-06-30", "2020-01-01"}},
		{"none", "no dates here", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDates(tt.text))
		})
	}
}
