// Package autoload registers every completion provider.
package autoload

import (
	_ "supportdesk/pkg/llm/gemini"
	_ "supportdesk/pkg/llm/ollama"
	_ "supportdesk/pkg/llm/openailm"
)
