package config

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string, temperature float64) *Gemini {
	return &Gemini{
		projectID:   projectID,
		location:    location,
		temperature: temperature,
	}
}

func NewPolicyForTest(path string) *Policy {
	return &Policy{path: path}
}

func NewAuthForTest(issuer, clientID, noAuth string) *Auth {
	return &Auth{
		issuer:   issuer,
		clientID: clientID,
		noAuth:   noAuth,
	}
}

func NewSlackForTest(botToken, channel string) *Slack {
	return &Slack{
		botToken: botToken,
		channel:  channel,
	}
}

func NewRepositoryForTest(backend string) *Repository {
	return &Repository{backend: backend}
}

func NewStorageForTest(backend, bucket string) *Storage {
	return &Storage{backend: backend, bucket: bucket}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewQueueForTest(backend string) *Queue {
	return &Queue{backend: backend}
}
