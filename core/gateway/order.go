package gateway

// The repair workflow moves through nine fixed stages. Step values outside the
// range are displayed as unknown rather than rejected.

var stepNames = map[int]string{
	0: "رسید انبار",
	1: "پیش پذیرش",
	2: "پذیرش",
	3: "تعمیرات",
	4: "صدور صورتحساب",
	5: "مالی",
	6: "صدور مجوز خروج کالا",
	7: "ارسال",
	8: "پایان",
}

var stepIcons = map[int]string{
	0: "📝",
	1: "✅",
	2: "🔍",
	3: "🔧",
	4: "📄",
	5: "💳",
	6: "📦",
	7: "🚚",
	8: "✔️",
}

// StepName returns the human-readable workflow stage for an order step.
func StepName(step int) string {
	if name, ok := stepNames[step]; ok {
		return name
	}
	return "نامشخص"
}

// StepIcon returns just the stage icon for compact listings.
func StepIcon(step int) string {
	if icon, ok := stepIcons[step]; ok {
		return icon
	}
	return "▫️"
}

// StepDisplay returns the stage name prefixed with its icon.
func StepDisplay(step int) string {
	return StepIcon(step) + " " + StepName(step)
}

// Progress converts a workflow step into a completion percentage.
func Progress(step int) int {
	if step <= 0 {
		return 0
	}
	if step >= 8 {
		return 100
	}
	return step * 100 / 8
}
