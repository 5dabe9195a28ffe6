package quiz

// SeedQuiz is the quiz provisioned when a backend starts empty.
func SeedQuiz() (Quiz, []Question) {
	q := Quiz{
		ID:          "general-knowledge",
		Title:       "General Knowledge Warm-up",
		Description: "A quick five question quiz to get your brain going!",
	}

	questions := []Question{
		{
			ID:            "gk-1",
			Question:      "What is the largest planet in our solar system?",
			Options:       []string{"Earth", "Jupiter", "Saturn", "Mars"},
			CorrectAnswer: 1,
		},
		{
			ID:            "gk-2",
			Question:      "How many sides does a hexagon have?",
			Options:       []string{"Five", "Six", "Seven", "Eight"},
			CorrectAnswer: 1,
		},
		{
			ID:            "gk-3",
			Question:      "Which gas do plants absorb from the air?",
			Options:       []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"},
			CorrectAnswer: 2,
		},
		{
			ID:            "gk-4",
			Question:      "What is 7 × 8?",
			Options:       []string{"54", "56", "58", "64"},
			CorrectAnswer: 1,
		},
		{
			ID:            "gk-5",
			Question:      "Who wrote \"Romeo and Juliet\"?",
			Options:       []string{"Charles Dickens", "Jane Austen", "William Shakespeare", "Mark Twain"},
			CorrectAnswer: 2,
		},
	}
	for i := range questions {
		questions[i].QuizID = q.ID
	}

	return q, questions
}
