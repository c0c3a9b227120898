package transport

import (
	"fmt"
	"strings"
)

// toneInstructions steers the chat assistant's register. Unknown tones
// fall back to friendly.
var toneInstructions = map[string]string{
	"friendly":     "Warm, upbeat, and encouraging with conversational phrasing",
	"professional": "Clear, confident, and executive-ready with minimal emojis",
	"playful":      "Energetic, witty, and emoji-rich without sacrificing clarity",
	"expert":       "Insightful, reference-driven, and authoritative with structured explanations",
}

func summarizePrompt(text string) string {
	return fmt.Sprintf(`Please provide a concise and comprehensive summary of the following text.
Focus on the main points, key concepts, and important details.
Make the summary clear, well-structured, and easy to understand.

Format your response with:
- Use emojis where appropriate to make it more engaging 📝
- Break down complex information into bullet points when helpful
- Use proper formatting with line breaks for readability

Text to summarize:
%s`, text)
}

func ideasPrompt(topic string) string {
	return fmt.Sprintf(`Generate 5-7 creative and diverse ideas related to the following topic: "%s"

Please provide:
- Creative and innovative approaches
- Different perspectives and angles
- Practical and actionable ideas
- Mix of beginner and advanced concepts

Format the response with:
- Use appropriate emojis to make each idea engaging 💡
- Format as a numbered list with brief explanations for each idea
- Make it visually appealing and easy to scan
- Use proper formatting with line breaks for readability`, topic)
}

func refinePrompt(text, instruction string) string {
	if instruction != "" {
		return fmt.Sprintf(`Please refine and improve the following content based on this specific instruction: "%s"

Content to refine:
%s

Please ensure the refined content:
- Follows the specific instruction provided
- Maintains the original meaning and intent
- Improves clarity, flow, and readability
- Uses appropriate tone and style
- Include relevant emojis where appropriate to enhance engagement ✨
- Use proper formatting with line breaks and structure for better readability`, instruction, text)
	}
	return fmt.Sprintf(`Please refine and improve the following content for better clarity, flow, and readability:

Content to refine:
%s

Please ensure the refined content:
- Maintains the original meaning and intent
- Improves grammar and sentence structure
- Enhances clarity and coherence
- Uses appropriate tone and style
- Include relevant emojis where appropriate to enhance engagement ✨
- Use proper formatting with line breaks and structure for better readability`, text)
}

func chatPrompt(message, tone string) string {
	toneDescription, ok := toneInstructions[strings.ToLower(tone)]
	if !ok {
		toneDescription = toneInstructions["friendly"]
	}
	return fmt.Sprintf(`You are a helpful AI assistant for the Content Studio application.
Adopt the following communication tone: %s.

User message: %s

Please provide a thoughtful response that:
- Addresses the user's question or comment directly
- Is helpful and informative
- Uses proper formatting with line breaks, bullet points, or numbered lists when helpful
- Encourages further discussion if appropriate
- Keeps the response visually appealing and easy to scan`, toneDescription, message)
}

// gamedevPrompts maps the game-development endpoint names to their prompt
// builders.
var gamedevPrompts = map[string]func(string) string{
	"story": func(p string) string {
		return fmt.Sprintf(`You are a creative narrative designer for video games.

Generate a compelling backstory, quest idea, or world-building concept based on the following prompt:

%s

Response should include:
- Title
- Setting
- Main conflict or hook
- Suggested gameplay elements`, p)
	},
	"dialogue": func(p string) string {
		return fmt.Sprintf(`You are a professional NPC dialogue writer for a fantasy RPG.

Based on the input below, generate a short, flavorful dialogue (4-6 lines) between an NPC and the player.

Context: %s

Ensure the dialogue:
- Has character personality
- Uses natural tone and speech
- Can be directly used in a quest or interaction`, p)
	},
	"mechanics": func(p string) string {
		return fmt.Sprintf(`You are a gameplay systems designer.

Based on the game concept provided below, suggest 2-3 unique gameplay mechanics or balancing ideas:

%s

Include:
- Name of each mechanic
- Brief description
- Optional: balancing tips`, p)
	},
	"code": func(p string) string {
		return fmt.Sprintf(`You are a game developer assistant specialized in Unity (C#) and Godot (GDScript).

Based on this request: "%s"

Provide a clear, short code snippet with comments. Mention the engine used and context of use.`, p)
	},
	"explain": func(p string) string {
		return fmt.Sprintf(`You are an expert game engine educator.

Explain the following concept in simple, beginner-friendly terms with real-life analogies:

"%s"

Use line breaks and bullet points to improve readability.`, p)
	},
}
