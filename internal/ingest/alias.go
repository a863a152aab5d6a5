package ingest

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultAliases maps each normalized column to the header spellings seen
// across years of vendor exports. Matching ignores whitespace and newlines.
// The distance aliases are order-sensitive: before 2019-05 "총 운행거리" was a
// daily figure, after it "총 주행거리" is the odometer.
var defaultAliases = map[string][]string{
	"date":                {"날짜", "일자"},
	"fuel_efficiency":     {"연비", "1일 평균연비", "1일평균연비", "평균연비"},
	"speed":               {"평균 운행속도", "평균운행속도", "평균 운행 속도"},
	"time":                {"총 운행시간", "운행시간", "총 운행 시간"},
	"distance":            {"1일 주행거리", "1일주행거리", "총 운행거리", "운행거리"},
	"cumulative_distance": {"총 주행거리", "총주행거리", "누적주행거리", "누적 운행거리"},
	"consumed_fuel":       {"연료 소모량", "1일 연료소모량", "소모량", "연료소모량"},
	"refuel":              {"연료주입량", "주입량", "연료 주입량"},
	"reurea":              {"요소수", "요소수주입", "요소수 주입량"},
}

// LoadAliases returns the default alias table, extended by the YAML file at
// path when one is given. File entries are appended after the defaults so
// built-in spellings keep precedence.
func LoadAliases(path string) (map[string][]string, error) {
	aliases := make(map[string][]string, len(defaultAliases))
	for k, v := range defaultAliases {
		aliases[k] = append([]string(nil), v...)
	}
	if path == "" {
		return aliases, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read alias file")
	}
	var extra map[string][]string
	if err := yaml.Unmarshal(raw, &extra); err != nil {
		return nil, eris.Wrap(err, "ingest: parse alias file")
	}
	for col, names := range extra {
		aliases[col] = append(aliases[col], names...)
	}
	return aliases, nil
}

// normalizeHeader strips the whitespace and line breaks vendors scatter
// through header cells.
func normalizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.TrimSpace(s)
}

// matchColumn resolves a header cell to a normalized column name, or ""
// when no alias matches.
func matchColumn(aliases map[string][]string, header string, taken map[string]bool) string {
	h := normalizeHeader(header)
	if h == "" {
		return ""
	}
	// Longest alias first so "총 주행거리" does not fall into the plain
	// "운행거리" bucket.
	best := ""
	bestLen := 0
	for col, names := range aliases {
		if taken[col] {
			continue
		}
		for _, name := range names {
			n := normalizeHeader(name)
			if n != "" && strings.Contains(h, n) && len(n) > bestLen {
				best = col
				bestLen = len(n)
			}
		}
	}
	return best
}
