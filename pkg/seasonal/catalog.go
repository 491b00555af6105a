package seasonal

// HealthTopic is a seasonal eye-health callout
type HealthTopic struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	CTA     string `json:"cta"`
}

// Promotion is a seasonal offer. Expires is a YYYY-MM-DD date; empty means it never expires.
type Promotion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Offer       string `json:"offer"`
	Expires     string `json:"expires,omitempty"`
}

// Styling holds the seasonal palette and imagery
type Styling struct {
	Colors []string `json:"colors"`
	Images []string `json:"images"`
}

// Bundle is the catalog entry for one season
type Bundle struct {
	HeroMessages []string      `json:"heroMessages"`
	HealthTopics []HealthTopic `json:"healthTopics"`
	Promotions   []Promotion   `json:"promotions"`
	Styling      Styling       `json:"styling"`
}

// BlogSuggestion is a proposed article
type BlogSuggestion struct {
	Title    string   `json:"title"`
	Topics   []string `json:"topics"`
	Keywords []string `json:"keywords"`
}

// SocialPost is a proposed social media post
type SocialPost struct {
	Platform string `json:"platform"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Image    string `json:"image"`
}

// MetaTags are the seasonal keyword and description meta values
type MetaTags struct {
	Keywords    string `json:"keywords"`
	Description string `json:"description"`
}

var (
	defaultColors = []string{"#3b82f6", "#1e40af", "#dbeafe"}
	defaultImages = []string{"eye-care-general.jpg"}
)

var catalog = map[Season]Bundle{
	Winter: {
		HeroMessages: []string{
			"Winter Eye Care: Protecting Your Vision During Cold Weather",
			"Dry Winter Air and Your Eyes: Expert Care Solutions",
			"Holiday Season Eye Health: Schedule Your Year-End Exam",
		},
		HealthTopics: []HealthTopic{
			{
				Title:   "Winter Dry Eye Relief",
				Content: "Cold winter air and indoor heating can worsen dry eye symptoms. Learn about our advanced dry eye treatments.",
				CTA:     "Learn About Dry Eye Treatment",
			},
			{
				Title:   "Snow Glare Protection",
				Content: "Protect your eyes from harmful UV reflection off snow with proper eyewear and regular eye exams.",
				CTA:     "Schedule Eye Exam",
			},
			{
				Title:   "Holiday Vision Care",
				Content: "Use your FSA/HSA benefits before year-end for eye exams, glasses, or contact lenses.",
				CTA:     "Use Your Benefits",
			},
		},
		Promotions: []Promotion{{
			Title:       "Year-End Benefits Reminder",
			Description: "Use your FSA/HSA funds before December 31st",
			Offer:       "Flexible payment options available",
			Expires:     "2026-12-31",
		}},
		Styling: Styling{
			Colors: []string{"#1e3a8a", "#3b82f6", "#e0f2fe"},
			Images: []string{"winter-eye-care.jpg", "snow-protection.jpg"},
		},
	},
	Spring: {
		HeroMessages: []string{
			"Spring Into Better Vision: Comprehensive Eye Care Services",
			"Allergy Season Eye Relief: Expert Treatment Options",
			"Fresh Start for Your Eyes: Spring Eye Health Checkup",
		},
		HealthTopics: []HealthTopic{
			{
				Title:   "Spring Allergy Eye Relief",
				Content: "Don't let seasonal allergies affect your vision. Our specialists provide effective allergy eye treatment.",
				CTA:     "Get Allergy Relief",
			},
			{
				Title:   "Outdoor Activity Vision",
				Content: "As outdoor activities increase, protect your eyes with proper UV protection and sports eyewear.",
				CTA:     "Explore Protective Eyewear",
			},
			{
				Title:   "Spring Cleaning for Your Eyes",
				Content: "Schedule your annual comprehensive eye exam to maintain optimal eye health.",
				CTA:     "Schedule Exam",
			},
		},
		Promotions: []Promotion{{
			Title:       "Spring Vision Special",
			Description: "Comprehensive eye exam with spring allergy consultation",
			Offer:       "Special package pricing available",
			Expires:     "2027-05-31",
		}},
		Styling: Styling{
			Colors: []string{"#059669", "#10b981", "#d1fae5"},
			Images: []string{"spring-allergies.jpg", "outdoor-protection.jpg"},
		},
	},
	Summer: {
		HeroMessages: []string{
			"Summer Eye Protection: UV Safety and Clear Vision",
			"Beach and Pool Eye Safety: Expert Care Tips",
			"Summer Activities Vision: Protect Your Eyes Outdoors",
		},
		HealthTopics: []HealthTopic{
			{
				Title:   "UV Protection Essentials",
				Content: "Summer sun can damage your eyes. Learn about UV protection and quality sunglasses.",
				CTA:     "UV Protection Guide",
			},
			{
				Title:   "Swimming and Eye Health",
				Content: "Protect your eyes from chlorine and bacteria while enjoying summer swimming.",
				CTA:     "Swimming Eye Safety",
			},
			{
				Title:   "Travel Vision Prep",
				Content: "Preparing for summer travel? Ensure your vision prescription is up to date.",
				CTA:     "Travel Vision Check",
			},
		},
		Promotions: []Promotion{{
			Title:       "Summer Sun Protection",
			Description: "UV protection consultation with sun safety education",
			Offer:       "Complimentary UV assessment",
			Expires:     "2027-08-31",
		}},
		Styling: Styling{
			Colors: []string{"#ea580c", "#fb923c", "#fed7aa"},
			Images: []string{"summer-uv-protection.jpg", "beach-eye-safety.jpg"},
		},
	},
	Fall: {
		HeroMessages: []string{
			"Fall Eye Health: Preparing for Vision Changes",
			"Back to School Vision: Student Eye Exam Specials",
			"Autumn Eye Care: Maintaining Clear Vision",
		},
		HealthTopics: []HealthTopic{
			{
				Title:   "Back to School Vision",
				Content: "Ensure your child's academic success with a comprehensive vision exam before school starts.",
				CTA:     "Schedule Student Exam",
			},
			{
				Title:   "Age-Related Vision Changes",
				Content: "As we age, regular eye exams become even more important for detecting vision changes.",
				CTA:     "Adult Vision Care",
			},
			{
				Title:   "Fall Allergy Relief",
				Content: "Ragweed and other fall allergens can affect your eyes. Get relief with our allergy treatments.",
				CTA:     "Allergy Treatment",
			},
		},
		Promotions: []Promotion{{
			Title:       "Back to School Special",
			Description: "Student eye exams with vision screening",
			Offer:       "Student discount available",
			Expires:     "2026-10-31",
		}},
		Styling: Styling{
			Colors: []string{"#92400e", "#d97706", "#fef3c7"},
			Images: []string{"back-to-school.jpg", "fall-vision-care.jpg"},
		},
	},
}

var blogSuggestions = map[Season][]BlogSuggestion{
	Winter: {
		{
			Title:    "Winter Eye Care: Protecting Your Vision from Cold Weather",
			Topics:   []string{"dry eye prevention", "indoor air quality", "winter sports safety"},
			Keywords: []string{"winter eye care", "dry eyes winter", "eye protection cold weather"},
		},
		{
			Title:    "Holiday Eye Health: Making the Most of Your Vision Benefits",
			Topics:   []string{"FSA/HSA usage", "year-end eye exams", "vision insurance"},
			Keywords: []string{"vision benefits", "FSA eye care", "year end eye exam"},
		},
	},
	Spring: {
		{
			Title:    "Spring Allergies and Your Eyes: Expert Treatment Guide",
			Topics:   []string{"allergy symptoms", "eye drops", "pollen protection"},
			Keywords: []string{"spring allergies eyes", "allergy eye drops", "seasonal allergies vision"},
		},
		{
			Title:    "Outdoor Activities and Eye Safety: Spring Vision Protection",
			Topics:   []string{"UV protection", "sports eyewear", "outdoor safety"},
			Keywords: []string{"outdoor eye protection", "sports vision safety", "UV eye damage"},
		},
	},
	Summer: {
		{
			Title:    "Summer Sun and Your Eyes: Ultimate UV Protection Guide",
			Topics:   []string{"sunglasses selection", "UV damage prevention", "beach safety"},
			Keywords: []string{"summer eye protection", "UV sunglasses", "beach eye safety"},
		},
		{
			Title:    "Swimming Pool Eye Safety: Protecting Vision While Swimming",
			Topics:   []string{"chlorine effects", "goggles", "infection prevention"},
			Keywords: []string{"swimming eye safety", "pool chlorine eyes", "swim goggles vision"},
		},
	},
	Fall: {
		{
			Title:    "Back to School Vision: Student Eye Exam Importance",
			Topics:   []string{"learning and vision", "computer vision", "student eye health"},
			Keywords: []string{"back to school eye exam", "student vision", "children eye care"},
		},
		{
			Title:    "Fall Allergy Eye Relief: Ragweed Season Solutions",
			Topics:   []string{"fall allergens", "treatment options", "prevention tips"},
			Keywords: []string{"fall allergies eyes", "ragweed eye allergies", "autumn eye care"},
		},
	},
}

var socialPosts = map[Season][]SocialPost{
	Winter: {
		{
			Platform: "instagram",
			Type:     "tip",
			Content:  "Winter Tip: Use a humidifier to combat dry eyes caused by indoor heating! #WinterEyeCare #DryEyes #EyeHealth",
			Image:    "winter-dry-eye-tip.jpg",
		},
		{
			Platform: "facebook",
			Type:     "reminder",
			Content:  "Holiday Reminder: Use your FSA/HSA benefits before December 31st for eye exams, glasses, or contacts! Call us to schedule.",
			Image:    "holiday-benefits-reminder.jpg",
		},
	},
	Spring: {
		{
			Platform: "instagram",
			Type:     "tip",
			Content:  "Spring has sprung! Don't let allergies cloud your vision. We have effective treatments for allergy-related eye issues. #SpringAllergies #EyeAllergies",
			Image:    "spring-allergy-relief.jpg",
		},
		{
			Platform: "facebook",
			Type:     "education",
			Content:  "As outdoor activities increase, remember to protect your eyes with quality UV-blocking sunglasses. Your eyes will thank you!",
			Image:    "spring-uv-protection.jpg",
		},
	},
	Summer: {
		{
			Platform: "instagram",
			Type:     "safety",
			Content:  "Summer Fun = Eye Protection! Quality sunglasses aren't just fashion, they're essential for eye health. #SummerEyeSafety #UVProtection",
			Image:    "summer-sunglasses-protection.jpg",
		},
		{
			Platform: "facebook",
			Type:     "tip",
			Content:  "Swimming this summer? Protect your eyes from chlorine and bacteria with proper goggles and post-swim eye care.",
			Image:    "swimming-eye-safety.jpg",
		},
	},
	Fall: {
		{
			Platform: "instagram",
			Type:     "reminder",
			Content:  "Back to School = Vision Check! Good vision is crucial for learning success. Schedule your child's eye exam today! #BackToSchool #ChildrenVision",
			Image:    "back-to-school-vision.jpg",
		},
		{
			Platform: "facebook",
			Type:     "education",
			Content:  "Fall allergies affecting your eyes? Ragweed season can be tough on sensitive eyes. We have solutions that work!",
			Image:    "fall-allergy-treatment.jpg",
		},
	},
}

var metaTags = map[Season]MetaTags{
	Winter: {
		Keywords:    "winter eye care, dry eyes, holiday vision benefits, cold weather eye protection",
		Description: "Winter eye care services in Orange County. Protect your vision from dry winter air and cold weather conditions.",
	},
	Spring: {
		Keywords:    "spring allergies, eye allergies, outdoor vision protection, seasonal eye care",
		Description: "Spring eye care and allergy relief services. Expert treatment for seasonal allergies affecting your vision.",
	},
	Summer: {
		Keywords:    "summer eye protection, UV safety, swimming eye care, beach vision safety",
		Description: "Summer eye protection services. UV safety, swimming eye care, and outdoor vision protection in Orange County.",
	},
	Fall: {
		Keywords:    "back to school vision, student eye exams, fall allergies, autumn eye care",
		Description: "Fall eye care services including back-to-school vision exams and fall allergy treatment.",
	},
}
