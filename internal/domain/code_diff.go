package domain

import (
	"fmt"
	"strings"
)

type diffOp struct {
	prefix string
	line   string
}

// BuildUnifiedDiff renders a line-oriented unified diff between two source
// texts, labeled with the snapshot tags they came from.
func BuildUnifiedDiff(baseLabel, targetLabel, baseContent, targetContent string) string {
	baseLines := splitLines(baseContent)
	targetLines := splitLines(targetContent)

	ops := diffLines(baseLines, targetLines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- %s\n", baseLabel))
	builder.WriteString(fmt.Sprintf("+++ %s\n", targetLabel))
	for _, operation := range ops {
		builder.WriteString(operation.prefix)
		builder.WriteString(operation.line)
		builder.WriteString("\n")
	}

	return builder.String()
}

func splitLines(input string) []string {
	lines := strings.Split(input, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// diffLines walks the longest-common-subsequence table of the two line sets
// and emits keep/remove/add operations.
func diffLines(base, target []string) []diffOp {
	m := len(base)
	n := len(target)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if base[i] == target[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	ops := make([]diffOp, 0, m+n)
	i, j := 0, 0
	for i < m && j < n {
		if base[i] == target[j] {
			ops = append(ops, diffOp{prefix: " ", line: base[i]})
			i++
			j++
			continue
		}

		if dp[i+1][j] >= dp[i][j+1] {
			ops = append(ops, diffOp{prefix: "-", line: base[i]})
			i++
		} else {
			ops = append(ops, diffOp{prefix: "+", line: target[j]})
			j++
		}
	}

	for i < m {
		ops = append(ops, diffOp{prefix: "-", line: base[i]})
		i++
	}

	for j < n {
		ops = append(ops, diffOp{prefix: "+", line: target[j]})
		j++
	}

	return ops
}
