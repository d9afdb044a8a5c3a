package main

import (
	"fmt"
	"strconv"
	"strings"

	"incomecast/internal/backend"
	"incomecast/internal/demographics"
	"incomecast/internal/orchestrator"
)

func renderPrediction(snap orchestrator.Snapshot) string {
	if snap.Result == nil {
		return ""
	}
	res := *snap.Result
	headline := "Predicted income: " + res.Label
	if res.AboveThreshold() {
		headline += " (above 50K)"
	} else {
		headline += " (50K or below)"
	}

	pairs := [][2]string{
		{"Prediction", res.Label},
		{"Confidence", formatPercent(res.Confidence)},
		{"P(" + backend.LabelAbove + ")", formatPercent(res.Probability(backend.LabelAbove))},
		{"P(" + backend.LabelBelow + ")", formatPercent(res.Probability(backend.LabelBelow))},
		{"Attempts", strconv.Itoa(len(snap.Attempts))},
		{"Elapsed", formatElapsed(snap.Elapsed())},
		{"Session", snap.ID},
	}

	var b strings.Builder
	b.WriteString(headline)
	b.WriteString("\n")
	b.WriteString(renderKeyValues(pairs))
	return b.String()
}

func renderRecord(rec demographics.Record) string {
	pairs := make([][2]string, 0, len(demographics.Fields()))
	for _, field := range demographics.Fields() {
		pairs = append(pairs, [2]string{demographics.Label(field), rec.Value(field)})
	}
	return renderKeyValues(pairs)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
