// Copyright 2025 Poiesic Systems
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


package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docindex/ai"
)

const answerSystemPrompt = `You are a helpful assistant that answers questions about the user's uploaded documents.

Follow these guidelines:

1. Answer based primarily on the provided context
2. Be specific and detailed when the context supports it
3. If the context doesn't fully answer the question, say so and provide what information is available
4. Always cite which document(s) your answer comes from
5. Use clear, professional language`

const answerPromptTemplate = `CONTEXT FROM DOCUMENTS:
%s

USER QUESTION: %s

Please provide a comprehensive answer based on the context above. If you reference specific information, mention which document it came from.`

const summaryPromptTemplate = `Please provide a concise summary of the following documents:

DOCUMENTS:
%s

SOURCES: %s

Provide a summary that includes:
1. Main topics covered
2. Key points
3. Important facts and figures
4. Overall themes

Keep the summary concise but informative (2-3 paragraphs).`

// buildAnswerPrompt renders the user message for a question.
func buildAnswerPrompt(query string, passages []ai.Passage) string {
	return fmt.Sprintf(answerPromptTemplate, ai.FormatContext(passages), query)
}

// buildSummaryPrompt renders the user message for a summary.
// Passage contents are joined with blank lines and sources listed once each.
func buildSummaryPrompt(passages []ai.Passage) string {
	contents := make([]string, len(passages))
	for i, p := range passages {
		contents[i] = p.Content
	}
	return fmt.Sprintf(summaryPromptTemplate,
		strings.Join(contents, "\n\n"),
		strings.Join(ai.Sources(passages), ", "))
}
