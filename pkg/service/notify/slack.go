package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/slack-go/slack"
)

// maxSectionBytes is the Slack limit on section block text
const maxSectionBytes = 3000

type slackNotifier struct {
	api            *slack.Client
	channelID      string
	appURL         string
	currencySymbol string
	slackOpts      []slack.Option
}

var _ Service = (*slackNotifier)(nil)

// Option is a functional option for the Slack notifier
type Option func(*slackNotifier)

// WithAppURL sets the frontend base URL used for claim links
func WithAppURL(url string) Option {
	return func(n *slackNotifier) {
		n.appURL = strings.TrimRight(url, "/")
	}
}

func WithCurrencySymbol(symbol string) Option {
	return func(n *slackNotifier) {
		n.currencySymbol = symbol
	}
}

// WithAPIURL points the client at a different Slack API endpoint
func WithAPIURL(url string) Option {
	return func(n *slackNotifier) {
		n.slackOpts = append(n.slackOpts, slack.OptionAPIURL(url))
	}
}

// NewSlack creates a notifier posting to channelID with the given bot token
func NewSlack(token, channelID string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel is required")
	}

	n := &slackNotifier{
		channelID:      channelID,
		currencySymbol: model.DefaultCurrencySymbol,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.api = slack.New(token, n.slackOpts...)

	return n, nil
}

func (n *slackNotifier) ClaimReady(ctx context.Context, claim *model.Claim) error {
	title := fmt.Sprintf(":mag: Claim ready for review: %s", claim.Title)
	lines := []string{
		fmt.Sprintf("*Policy:* %s (%s)", claim.PolicyNumber, claim.PolicyholderName),
		fmt.Sprintf("*Vehicle:* %s %s, %s", claim.VehicleMake, claim.VehicleModel, claim.RegistrationNumber),
		fmt.Sprintf("*Claimed:* %s", model.FormatAmount(claim.ClaimedAmount, n.currencySymbol)),
	}
	if claim.Analysis != nil && claim.Analysis.Image != nil {
		lines = append(lines, fmt.Sprintf("*AI generated likelihood:* %.0f%%", claim.Analysis.Image.AIGeneratedLikelihood*100))
	}
	if claim.AnalysisError != "" {
		lines = append(lines, fmt.Sprintf("*Analysis failed:* %s", claim.AnalysisError))
	}
	if claim.Brief != nil && claim.Brief.RecommendedAction != "" {
		lines = append(lines, fmt.Sprintf("*Suggested:* %s", claim.Brief.RecommendedAction))
	}
	return n.post(ctx, claim, title, lines)
}

func (n *slackNotifier) ClaimDecided(ctx context.Context, claim *model.Claim) error {
	icon := ":white_check_mark:"
	if claim.Status == types.ClaimStatusRejected {
		icon = ":x:"
	}
	title := fmt.Sprintf("%s Claim %s: %s", icon, claim.Decision, claim.Title)
	lines := []string{
		fmt.Sprintf("*Claimed:* %s", model.FormatAmount(claim.ClaimedAmount, n.currencySymbol)),
	}
	if claim.ApprovedAmount != nil {
		lines = append(lines, fmt.Sprintf("*Approved:* %s", model.FormatAmount(*claim.ApprovedAmount, n.currencySymbol)))
	}
	if claim.AssessorNotes != "" {
		lines = append(lines, fmt.Sprintf("*Notes:* %s", claim.AssessorNotes))
	}
	return n.post(ctx, claim, title, lines)
}

func (n *slackNotifier) post(ctx context.Context, claim *model.Claim, title string, lines []string) error {
	body := truncateToMaxBytes(strings.Join(lines, "\n"), maxSectionBytes)

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, truncateToMaxBytes(title, 150), true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, body, false, false), nil, nil),
	}
	if n.appURL != "" {
		link := fmt.Sprintf("<%s/claims/%s|Open claim>", n.appURL, claim.ID)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, link, false, false)))
	}

	_, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(title, false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post Slack message",
			goerr.V("channel", n.channelID),
			goerr.V("claim_id", claim.ID),
		)
	}
	return nil
}

// truncateToMaxBytes cuts s to at most limit bytes without splitting a rune
func truncateToMaxBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	const ellipsis = "…"
	cut := limit - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}
