package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/etnz/whatif/renderer"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:        "Facilitator",
		Description: ``,
		ModelName:   model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user is exploring what a portfolio bought in the past would be worth today.
			Nothing is actually bought or sold, these are hypothetical scenarios.
			Never present a past performance as a promise of future returns.

			Devise a plan of questions to ask to each experts and come up with the best reponse to the user's request.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

func NewTrader() *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader,
		Very well aware of all the financial products and institutions,
		about the latest news about the different funds or companies.
		Ask the Trader whenever you need recent or grounding information, or to explain
		why an asset went up or down over a period.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a expert in Trading, you can search and find about anything related to
			financial institutions, companies, markets, funds etc. You Leverage Google Search to
			ground your assertions in a solid truth.
			You know the history of the markets and can relate an asset's moves to past events.
				`}}},
		},
	}
}

// NewAnalyst returns the expert that values portfolios with driver.
func NewAnalyst(driver *whatif.Driver) *Expert {
	lib := []Function{Valuation(driver), Evaluate(driver)}

	return &Expert{
		Name: "Analyst",
		Description: `This is the Analyst. He knows the user's hypothetical portfolio and its valuation
		over time, and can value any other hypothetical portfolio, e.g. with other assets,
		another split or another start date.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are a financial analyst. You use the Tools to get the valuation of the user's
				hypothetical portfolio, and to value variations of it to answer "what if" questions.
				Figures come from the tools only, never make them up.
				Shares are bought once, on the first price available, and never rebalanced.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// Valuation returns the function describing the latest valuation of driver.
func Valuation(driver *whatif.Driver) *Func {
	const name = "Valuation"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        name,
			Description: `Valuation returns the user's current hypothetical portfolio and its valuation over time.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown report with the assets, their value and the value of the portfolio over time.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			res := driver.Latest()
			if res == nil {
				return errorResponse(id, name, errors.New("the user has not valued any portfolio yet"))
			}
			md, err := renderer.RenderValuation(renderer.NewReport(res))
			if err != nil {
				return errorResponse(id, name, err)
			}
			return outputResponse(id, name, md)
		},
	}
}

// Evaluate returns the function valuing a new portfolio with driver.
func Evaluate(driver *whatif.Driver) *Func {
	const name = "Evaluate"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: name,
			Description: `Evaluate values a hypothetical portfolio: an initial amount split between at most 7 assets
			bought on a start date. It becomes the user's current portfolio.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"initial": {
						Type:        genai.TypeNumber,
						Description: "The amount invested, e.g. 10000.",
					},
					"start": {
						Type:        genai.TypeString,
						Description: "The day the assets are bought, as YYYY-MM-DD.",
					},
					"assets": {
						Type:        genai.TypeArray,
						Description: `The assets as "SYMBOL=PERCENT", e.g. ["AAPL=60", "MSFT=40"]. Percents add up to 100.`,
						Items:       &genai.Schema{Type: genai.TypeString},
					},
				},
				Required: []string{"initial", "start", "assets"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown summary of the valuation, or the reason it failed.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			spec, err := parseSpec(args)
			if err != nil {
				return errorResponse(id, name, err)
			}
			res, err := driver.Submit(ctx, spec)
			if err != nil {
				if hint := whatif.Hint(err); hint != "" {
					err = fmt.Errorf("%w (%s)", err, hint)
				}
				return errorResponse(id, name, err)
			}
			md, err := renderer.RenderSummary(renderer.NewReport(res))
			if err != nil {
				return errorResponse(id, name, err)
			}
			return outputResponse(id, name, md)
		},
	}
}

// parseSpec reads the Evaluate arguments.
func parseSpec(args map[string]any) (whatif.PortfolioSpec, error) {
	var spec whatif.PortfolioSpec

	initial, ok := args["initial"].(float64)
	if !ok {
		return spec, fmt.Errorf("argument 'initial' is not a number as expected but %T", args["initial"])
	}
	spec.Initial = decimal.NewFromFloat(initial)

	sdate, ok := args["start"].(string)
	if !ok {
		return spec, fmt.Errorf("argument 'start' is not a string as expected but %T", args["start"])
	}
	start, err := date.Parse(sdate)
	if err != nil {
		return spec, fmt.Errorf("argument 'start' must be a valid date got %q: %w", sdate, err)
	}
	spec.Start = start

	assets, ok := args["assets"].([]any)
	if !ok {
		return spec, fmt.Errorf("argument 'assets' is not a list as expected but %T", args["assets"])
	}
	for _, a := range assets {
		s, ok := a.(string)
		if !ok {
			return spec, fmt.Errorf("asset %v is not a string as expected but %T", a, a)
		}
		asset, err := whatif.ParseAsset(s)
		if err != nil {
			return spec, err
		}
		spec.Assets = append(spec.Assets, asset)
	}
	return spec, nil
}
