package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dt-pm-tools/kbagent/internal/prompt"
)

type fakeConverser struct {
	in  *bedrockruntime.ConverseInput
	out *bedrockruntime.ConverseOutput
	err error
}

func (f *fakeConverser) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.in = in
	return f.out, f.err
}

func textOutput(parts ...string) *bedrockruntime.ConverseOutput {
	var blocks []types.ContentBlock
	for _, p := range parts {
		blocks = append(blocks, &types.ContentBlockMemberText{Value: p})
	}
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{Role: types.ConversationRoleAssistant, Content: blocks}},
	}
}

func TestBedrockGenerate(t *testing.T) {
	fake := &fakeConverser{out: textOutput("[\"vpn\", ", "\"tunnel\"]")}
	b := &Bedrock{client: fake, modelID: "arn:aws:bedrock:us-east-1:1:inference-profile/x", defaults: Options{MaxTokens: 512, Temperature: 0.1}}

	got, err := b.Generate(context.Background(), []prompt.Message{
		{Role: prompt.RoleSystem, Content: "sys"},
		{Role: prompt.RoleUser, Content: "q"},
		{Role: prompt.RoleAssistant, Content: "a"},
		{Role: prompt.RoleUser, Content: "q2"},
	})
	require.NoError(t, err)
	assert.Equal(t, `["vpn", "tunnel"]`, got)

	in := fake.in
	require.NotNil(t, in)
	assert.Equal(t, "arn:aws:bedrock:us-east-1:1:inference-profile/x", aws.ToString(in.ModelId))
	assert.Equal(t, int32(512), aws.ToInt32(in.InferenceConfig.MaxTokens))
	require.Len(t, in.System, 1)
	assert.Equal(t, "sys", in.System[0].(*types.SystemContentBlockMemberText).Value)
	require.Len(t, in.Messages, 3)
	assert.Equal(t, types.ConversationRoleUser, in.Messages[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, in.Messages[1].Role)
	assert.Equal(t, "q2", in.Messages[2].Content[0].(*types.ContentBlockMemberText).Value)
}

func TestBedrockGenerate_Errors(t *testing.T) {
	b := &Bedrock{client: &fakeConverser{err: errors.New("throttled")}, modelID: "m"}
	_, err := b.Generate(context.Background(), []prompt.Message{{Role: "user", Content: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	b = &Bedrock{client: &fakeConverser{out: &bedrockruntime.ConverseOutput{}}, modelID: "m"}
	_, err = b.Generate(context.Background(), []prompt.Message{{Role: "user", Content: "x"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
