package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/chimeralabs/chimera/internal/models"
)

// outcomeOptions are the outcome labels the memory system accepts.
var outcomeOptions = []string{models.OutcomeSuccess, models.OutcomeFailure}

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, MSFT, GOOGL):",
		Help:    "Please enter a valid stock ticker symbol for analysis",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if len(str) == 0 {
			return fmt.Errorf("ticker symbol cannot be empty")
		}
		if len(str) > 10 {
			return fmt.Errorf("ticker symbol too long (max 10 characters)")
		}
		matched, _ := regexp.MatchString(`^[A-Z0-9.-]+$`, str)
		if !matched {
			return fmt.Errorf("invalid ticker format (use letters, numbers, dots, and hyphens only)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

// PromptForOutcome prompts for the realized outcome of a memo and an optional
// return percentage.
func PromptForOutcome() (string, *float64, error) {
	var outcome string
	sel := &survey.Select{
		Message: "How did this recommendation play out?",
		Options: outcomeOptions,
		Default: models.OutcomeSuccess,
	}
	if err := survey.AskOne(sel, &outcome); err != nil {
		return "", nil, err
	}

	var returnStr string
	input := &survey.Input{
		Message: "Realized return in percent (e.g., 12.5), or press Enter to skip:",
	}
	err := survey.AskOne(input, &returnStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(str, 64); err != nil {
			return fmt.Errorf("invalid number: %s", str)
		}
		return nil
	}))
	if err != nil {
		return "", nil, err
	}

	returnStr = strings.TrimSpace(returnStr)
	if returnStr == "" {
		return outcome, nil, nil
	}
	ret, err := strconv.ParseFloat(returnStr, 64)
	if err != nil {
		return "", nil, err
	}
	return outcome, &ret, nil
}

// PromptForConfirmation asks a yes/no question
func PromptForConfirmation(message string) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: message,
		Default: true,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
