package mockserver

import (
	"strings"
)

// Responder produces the reply to the exchange-th message of a session.
// Returning ended closes the session.
type Responder func(userID, message string, exchange int) (reply string, ended bool)

// DefaultGreeting is the start_session message
const DefaultGreeting = `Hello! I can help you find public **grants** for your company.

{% callout variant="info" %}Tell me about your company: sector, size and region.{% /callout %}`

// FarewellReply ends a session
const FarewellReply = "Thanks for chatting. Good luck with your application!"

var farewells = map[string]bool{
	"bye":     true,
	"goodbye": true,
	"exit":    true,
	"quit":    true,
}

// DefaultScript returns the canned replies, cycled in order
func DefaultScript() []string {
	return []string{
		`Thanks! Based on that, these calls look relevant:

| Call | Max amount | Deadline |
| :--- | ---: | :---: |
| Digital transformation | 50,000 EUR | 2025-06-30 |
| Energy efficiency | 120,000 EUR | 2025-09-15 |

Which one would you like to discuss?`,
		`The *Digital transformation* call covers:

- software licences and cloud services
- consultancy for process redesign
- staff training

{% callout variant="warning" %}Expenses made before the application date are **not** eligible.{% /callout %}`,
		`{% details summary="Required documents" %}
1. Company tax certificate
2. Social security certificate
3. Project budget
{% /details %}

Anything else I can help with? Say *bye* to finish.`,
	}
}

// ScriptedResponder cycles through replies and ends the session on a
// farewell message.
func ScriptedResponder(replies []string) Responder {
	return func(_, message string, exchange int) (string, bool) {
		if farewells[strings.ToLower(strings.Trim(message, " \t\n.!"))] {
			return FarewellReply, true
		}
		if len(replies) == 0 {
			return "", false
		}
		if exchange < 1 {
			exchange = 1
		}
		return replies[(exchange-1)%len(replies)], false
	}
}
