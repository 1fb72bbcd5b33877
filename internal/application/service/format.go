package service

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var indianEnglish = language.MustParse("en-IN")

// formatINR renders an amount as rupees with grouping and two decimals
func formatINR(amount float64) string {
	return message.NewPrinter(indianEnglish).Sprintf("₹%.2f", amount)
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return cases.Title(language.English).String(name)
}
