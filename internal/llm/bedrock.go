package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/dt-pm-tools/kbagent/internal/config"
	"github.com/dt-pm-tools/kbagent/internal/prompt"
)

// converser is the slice of the Bedrock runtime client the adapter uses.
type converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Bedrock implements Generator on the Bedrock Converse API.
type Bedrock struct {
	client   converser
	modelID  string
	defaults Options
}

// NewBedrock creates a Bedrock adapter. The inference profile, when set,
// takes precedence over model. Static keys are used when both are set,
// otherwise the default AWS credential chain applies.
func NewBedrock(ctx context.Context, cfg config.AWS, model string, defaults Options) (*Bedrock, error) {
	modelID := cfg.InferenceProfile
	if modelID == "" {
		modelID = model
	}
	if modelID == "" {
		return nil, fmt.Errorf("bedrock: a model id or inference profile is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: loading aws config: %w", err)
	}

	return &Bedrock{
		client:   bedrockruntime.NewFromConfig(awsCfg),
		modelID:  modelID,
		defaults: defaults,
	}, nil
}

// Generate sends system messages as Converse system blocks.
func (b *Bedrock) Generate(ctx context.Context, msgs []prompt.Message, opts ...Option) (string, error) {
	o := resolve(b.defaults, opts)

	out, err := b.client.Converse(ctx, toConverseInput(b.modelID, msgs, o))
	if err != nil {
		return "", fmt.Errorf("bedrock: converse: %w", err)
	}

	text := converseText(out)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("bedrock: %w", ErrEmptyResponse)
	}
	return text, nil
}

func toConverseInput(modelID string, msgs []prompt.Message, o Options) *bedrockruntime.ConverseInput {
	system, turns := splitSystem(msgs)

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: make([]types.Message, 0, len(turns)),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(o.MaxTokens)),
			Temperature: aws.Float32(float32(o.Temperature)),
		},
	}
	if system != "" {
		in.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}
	for _, m := range turns {
		role := types.ConversationRoleUser
		if m.Role == prompt.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		in.Messages = append(in.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return in
}

func converseText(out *bedrockruntime.ConverseOutput) string {
	if out == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(t.Value)
		}
	}
	return b.String()
}
