package planner

// Архетипы вопросов
const (
	archConceptual     = "conceptual"
	archPractical      = "practical"
	archProblemSolving = "problem_solving"
	archArchitectural  = "architectural"
)

// Пулы вопросов по (уровень сложности, архетип). Метка %s
// подставляется текущей темой.
var questionPools = map[string]map[string][]string{
	"beginner": {
		archConceptual: {
			"Can you explain what %s is in simple terms?",
			"What are the basic concepts someone needs to know about %s?",
			"How would you describe %s to someone new to programming?",
			"What problem does %s help solve?",
		},
		archPractical: {
			"Can you show a simple example of how to use %s?",
			"What's the most basic way to implement %s?",
			"Walk me through a beginner-level example of %s.",
		},
	},
	"intermediate": {
		archConceptual: {
			"Explain the core architecture and components of %s.",
			"What are the key design patterns used in %s?",
			"How does %s handle common challenges like performance or security?",
			"What are the trade-offs when using %s versus alternatives?",
		},
		archPractical: {
			"Show me how you would implement %s in a real-world scenario.",
			"How would you optimize %s for better performance?",
			"Walk me through debugging a common issue with %s.",
			"How would you integrate %s with other systems?",
		},
		archProblemSolving: {
			"Given a scenario with a production incident, how would you use %s to solve it?",
			"What approach would you take to scale %s for high traffic?",
			"How would you troubleshoot performance issues in %s?",
		},
	},
	"advanced": {
		archConceptual: {
			"Explain the internal mechanics and advanced features of %s.",
			"What are the limitations of %s and how do you work around them?",
			"How would you design a distributed system using %s?",
			"What are the security considerations at scale for %s?",
		},
		archPractical: {
			"Design and implement a complex system using %s.",
			"How would you optimize %s for maximum performance under load?",
			"Show me how you would implement advanced features of %s.",
			"How would you handle fault tolerance and recovery in %s?",
		},
		archArchitectural: {
			"How would you architect a large-scale system using %s?",
			"What design patterns and principles are most important for %s at scale?",
			"How does %s fit into microservices architecture?",
			"What are the deployment and operational considerations for %s?",
		},
	},
}

// Фразы для режима plain по диапазонам последней оценки
var challengePhrases = []string{
	"That's an excellent answer. Now, considering edge cases, how would you handle...",
	"Great insight. Taking this further, how would you optimize this for scale?",
	"Well explained. What are the potential security implications of this approach?",
	"Good understanding. How would this solution work in a distributed system?",
}

var relatedPhrases = []string{
	"Good. Let's explore a related concept: ",
	"That makes sense. How does this compare to ",
	"Okay. What are the trade-offs of this approach versus ",
}

var relatedTopics = []string{
	"microservices architecture",
	"database optimization",
	"caching strategies",
	"API design",
}

var clarifyingPhrases = []string{
	"Let me clarify: can you explain your understanding of ",
	"I want to make sure I understand your approach. Could you elaborate on ",
	"Let's go back to fundamentals. What is the core concept behind ",
}

var coreConcepts = []string{
	"that technology",
	"the underlying principle",
	"the main algorithm",
	"that architecture",
}
