// Copyright 2025 Spec3 Chatbot Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"go.uber.org/zap"
)

const (
	// kbNumberOfResults is the vector-search result count for KB queries.
	kbNumberOfResults = 5

	// kbPromptTemplateFormat is the generation prompt. $search_results$ is
	// substituted by the service; the user question is interpolated here.
	kbPromptTemplateFormat = "Based on the following search results, answer the user question: $search_results$\n\nQuestion: %s\n\nAnswer:"
)

// AgentAPI is the subset of the Bedrock agent runtime client used for
// knowledge-base queries. It exists so tests can substitute a double.
type AgentAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// KnowledgeBase queries a Bedrock knowledge base via retrieve-and-generate.
type KnowledgeBase struct {
	agent           AgentAPI
	knowledgeBaseID string
	modelARN        string
	logger          *zap.Logger
}

// NewKnowledgeBase constructs a KnowledgeBase backed by the default AWS
// credential chain.
func NewKnowledgeBase(ctx context.Context, region, knowledgeBaseID, modelARN string, logger *zap.Logger) (*KnowledgeBase, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewKnowledgeBaseWithAPI(bedrockagentruntime.NewFromConfig(cfg), knowledgeBaseID, modelARN, logger), nil
}

// NewKnowledgeBaseWithAPI constructs a KnowledgeBase with an injected agent API.
func NewKnowledgeBaseWithAPI(api AgentAPI, knowledgeBaseID, modelARN string, logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{
		agent:           api,
		knowledgeBaseID: knowledgeBaseID,
		modelARN:        modelARN,
		logger:          logger,
	}
}

// Query runs retrieve-and-generate for a user question. It returns the
// generated answer and the provenance labels of the retrieved references.
func (kb *KnowledgeBase) Query(ctx context.Context, message string) (string, []string, error) {
	kb.logger.Debug("Querying knowledge base",
		zap.String("knowledge_base_id", kb.knowledgeBaseID),
		zap.Int("message_length", len(message)),
	)

	out, err := kb.agent.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{
			Text: aws.String(message),
		},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(kb.knowledgeBaseID),
				ModelArn:        aws.String(kb.modelARN),
				RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
						NumberOfResults: aws.Int32(kbNumberOfResults),
					},
				},
				GenerationConfiguration: &types.GenerationConfiguration{
					PromptTemplate: &types.PromptTemplate{
						TextPromptTemplate: aws.String(fmt.Sprintf(kbPromptTemplateFormat, message)),
					},
				},
			},
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("retrieve-and-generate failed: %w", err)
	}

	if out.Output == nil || out.Output.Text == nil {
		return "", nil, fmt.Errorf("retrieve-and-generate returned no output text")
	}

	sources := citationSources(out.Citations)

	kb.logger.Debug("Knowledge base query completed",
		zap.Int("citation_count", len(out.Citations)),
		zap.Int("source_count", len(sources)),
	)

	return aws.ToString(out.Output.Text), sources, nil
}

// citationSources collects distinct provenance labels from citations,
// preserving first-seen order.
func citationSources(citations []types.Citation) []string {
	var sources []string
	seen := make(map[string]bool)

	for _, citation := range citations {
		for _, ref := range citation.RetrievedReferences {
			var label string
			if ref.Location != nil && ref.Location.S3Location != nil {
				label = aws.ToString(ref.Location.S3Location.Uri)
			}
			if label == "" || seen[label] {
				continue
			}
			seen[label] = true
			sources = append(sources, label)
		}
	}

	return sources
}
