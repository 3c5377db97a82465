package tool

import (
	"strconv"
	"strings"
)

// formatCurrency 输出形如 $1,234,567.89 的货币串，空值渲染为 N/A
func formatCurrency(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return "$" + groupThousands(strconv.FormatFloat(*v, 'f', -1, 64))
}

// formatPercent 百分比保留原始精度，空值渲染为 N/A
func formatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// groupThousands 对十进制数字串的整数部分做千分位分组
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := sign + b.String()
	if hasFrac {
		out += "." + fracPart
	}
	return out
}
