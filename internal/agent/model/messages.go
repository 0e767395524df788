package model

// Caller-visible fixed texts. None of these carry internal error detail.
const (
	GreetingText = "Namaste! I am your Jan Sahayak. How can I help you today?"

	// FallbackApology is returned whenever a turn cannot produce an analysis.
	FallbackApology = "I'm sorry, I couldn't complete your request right now. " +
		"Please try again in a moment, or contact a human caseworker for help."

	// SynthesisErrorMessage is returned when the final response could not be written.
	SynthesisErrorMessage = "I'm sorry, something went wrong while preparing your answer. " +
		"Please try again or contact a human caseworker."

	ConversationErrorMessage = "I encountered an error. Please try asking again."

	// GenericErrorMessage is the single error event text for unexpected failures.
	GenericErrorMessage = "Something went wrong on our side. Your conversation is safe; please try again."

	NoDocumentsFound = "No relevant policy documents found."

	PolicyNotFoundNote = "_Not found in the provided policy documents; treat this as general guidance._"

	GeneralApplicationScheme = "General Application Guidance"
)
