package branch

// synonyms maps known spellings and abbreviations to the canonical branch name.
var synonyms = map[string]string{
	"Artificial Intelligence & Machine Learning (AIML)":   "Artificial Intelligence and Machine Learning",
	"Artificial Intelligence and Machine Learning (AIML)": "Artificial Intelligence and Machine Learning",
	"AI & ML": "Artificial Intelligence and Machine Learning",
	"AIML":    "Artificial Intelligence and Machine Learning",
	"Artificial Intelligence & Data Science":   "Artificial Intelligence and Data Science",
	"AI & Data Science":                        "Artificial Intelligence and Data Science",
	"Artificial Intelligence and Data Science": "Artificial Intelligence and Data Science",

	"Computer Science and Engineering":                   "Computer Science and Engineering",
	"Computer Science & Engineering":                     "Computer Science and Engineering",
	"CSE":                                                "Computer Science and Engineering",
	"Computer Science and Engg":                          "Computer Science and Engineering",
	"Computer Science and Engg (AI & ML)":                "Computer Science and Engineering (Artificial Intelligence and Machine Learning)",
	"Computer Science and Engineering (AI & ML)":         "Computer Science and Engineering (Artificial Intelligence and Machine Learning)",
	"Computer Science and Engineering (Cyber Security)": "Computer Science and Engineering (Cyber Security)",
	"Computer Science and Engineering (Data Science)":   "Computer Science and Engineering (Data Science)",
	"Computer Science and Design":                        "Computer Science and Design",

	"Information Science and Engineering": "Information Science and Engineering",
	"Information Science & Engineering":   "Information Science and Engineering",
	"ISE":                                 "Information Science and Engineering",
	"Information Science and Engg":        "Information Science and Engineering",

	"Electronics and Communication Engg":        "Electronics and Communication Engineering",
	"Electronics & Communication Engineering":   "Electronics and Communication Engineering",
	"Electronics and Communication Engineering": "Electronics and Communication Engineering",
	"ECE":   "Electronics and Communication Engineering",
	"E & C": "Electronics and Communication Engineering",

	"Electronics & Instrumentation Engineering":   "Electronics and Instrumentation Engineering",
	"Electronics and Instrumentation Engineering": "Electronics and Instrumentation Engineering",

	"Electronics & Telecommunication Engineering":   "Electronics and Telecommunication Engineering",
	"Electronics and Telecommunication Engineering": "Electronics and Telecommunication Engineering",

	"Electrical & Electronics Engineering":   "Electrical and Electronics Engineering",
	"Electrical and Electronics Engineering": "Electrical and Electronics Engineering",
	"EEE":                                    "Electrical and Electronics Engineering",
	"E & E":                                  "Electrical and Electronics Engineering",

	"Electrical & Communication Engineering":   "Electrical and Communication Engineering",
	"Electrical and Communication Engineering": "Electrical and Communication Engineering",

	"Mechanical Engineering": "Mechanical Engineering",
	"ME":                     "Mechanical Engineering",
	"Civil Engineering":      "Civil Engineering",
	"CE":                     "Civil Engineering",

	"Data Science":                          "Data Science",
	"Intelligence":                          "Artificial Intelligence",
	"Biotechnology":                         "Biotechnology",
	"Chemical Engineering":                  "Chemical Engineering",
	"Industrial Engineering":                "Industrial Engineering and Management",
	"Industrial Engineering & Management":   "Industrial Engineering and Management",
	"Industrial Engineering and Management": "Industrial Engineering and Management",
	"Aeronautical Engineering":              "Aeronautical Engineering",
	"Aerospace Engineering":                 "Aerospace Engineering",
	"Automobile Engineering":                "Automobile Engineering",
	"Medical Electronics":                   "Medical Electronics",
	"Instrumentation Technology":            "Instrumentation Technology",
	"Telecommunication Engineering":         "Telecommunication Engineering",
	"Polymer Science":                       "Polymer Science and Technology",
	"Textile Technology":                    "Textile Technology",
	"Ceramics & Cement Engineering":         "Ceramics and Cement Technology",
	"CERAMICS & CEMENT ENGINEERING":         "Ceramics and Cement Technology",
	"Mining Engineering":                    "Mining Engineering",
	"Metallurgical Engineering":             "Metallurgical Engineering",
	"Printing Technology":                   "Printing Technology",
	"Robotics & Automation":                 "Robotics and Automation",
	"Robotics and Automation":               "Robotics and Automation",
	"Mechatronics":                          "Mechatronics Engineering",
	"Mechatronics Engineering":              "Mechatronics Engineering",
}

// defaultRules are applied in order when no synonym matches.
var defaultRules = []Rule{
	{Tag: "ampersand", Pattern: `\s+&\s+`, Replace: " and "},
	{Tag: "engg", Pattern: `\s+Engg\b`, Replace: " Engineering"},
	{Tag: "ai", Pattern: `\bAI\b`, Replace: "Artificial Intelligence"},
	{Tag: "ml", Pattern: `\bML\b`, Replace: "Machine Learning"},
	{Tag: "cse", Pattern: `\bCSE\b`, Replace: "Computer Science and Engineering"},
	{Tag: "ece", Pattern: `\bECE\b`, Replace: "Electronics and Communication Engineering"},
	{Tag: "eee", Pattern: `\bEEE\b`, Replace: "Electrical and Electronics Engineering"},
	{Tag: "ise", Pattern: `\bISE\b`, Replace: "Information Science and Engineering"},
	{Tag: "me", Pattern: `\bME\b`, Replace: "Mechanical Engineering"},
	{Tag: "ce", Pattern: `\bCE\b`, Replace: "Civil Engineering"},
}
