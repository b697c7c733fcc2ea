package dialog

import (
	"fmt"
	"strings"

	"github.com/m3rciful/hamoonbot/core/gateway"
)

// Menu labels double as reply-keyboard button texts; the classifier matches
// them verbatim.
const (
	BtnLogin     = "🔐 ورود با کد ملی"
	BtnTrack     = "📦 پیگیری سفارش"
	BtnMyOrders  = "📦 سفارشات من"
	BtnComplaint = "💬 ثبت شکایت"
	BtnRepair    = "🔧 درخواست تعمیر"
	BtnRate      = "⭐ امتیازدهی"
	BtnHelp      = "❓ راهنما"
	BtnCancel    = "❌ انصراف"
	BtnLogout    = "🚪 خروج"
)

const (
	msgWelcome = `🌟 سلام! به ربات پشتیبانی خوش آمدید

🤝 من دستیار هوشمند شما هستم و در این موارد کمکتون می‌کنم:
• 📦 پیگیری سفارشات
• 🔧 درخواست تعمیرات
• 💬 ثبت نظرات و شکایات

از منو انتخاب کنید 👇`

	msgMaintenance = `🔧 سیستم در حال به‌روزرسانی

سیستم موقتاً در دسترس نیست.
لطفاً لحظاتی دیگر مجدداً تلاش کنید.`

	msgAuthRequest = "🔐 لطفا کد ملی خود را به صورت کامل وارد کنید."

	msgAuthInvalid = `❌ کد ملی نامعتبر

کد ملی باید 10 رقم باشد.
مثال: 1234567890`

	msgAuthFailed = "❌ کد ملی یافت نشد"

	msgBlocked = `⛔️ تعداد تلاش‌های ناموفق بیش از حد مجاز است.

لطفاً بعداً دوباره تلاش کنید.`

	msgNeedAuth = "🔐 برای استفاده از این بخش ابتدا با کد ملی وارد شوید."

	msgOrderPrompt = `🔢 شماره پذیرش یا سریال دستگاه را وارد کنید.

• شماره پذیرش: عدد یا کد روی رسید
• سریال دستگاه: عدد 12 رقمی روی دستگاه`

	msgOrderNotFound = `❌ سفارش یافت نشد
لطفا شماره پذیرش یا سریال دستگاه را بررسی و دوباره وارد کنید!`

	msgOrderGiveUp = "❌ سفارشی با مشخصات وارد شده پیدا نشد. در صورت نیاز با پشتیبانی تماس بگیرید."

	msgComplaintTypePrompt = `💬 نوع شکایت یا پیشنهاد خود را بنویسید:

فنی / مالی و پرداخت / ارسال و تحویل / خدمات / سایر`

	msgComplaintTextPrompt = "📝 لطفا شرح کامل شکایت یا پیشنهاد خود را بنویسید."

	msgComplaintTooShort = "❌ متن وارد شده خیلی کوتاه است. لطفا شرح کامل‌تری بنویسید."

	msgRepairDescPrompt = "🔧 لطفا مشکل دستگاه خود را شرح دهید."

	msgRepairContactPrompt = "📱 شماره موبایل خود را برای هماهنگی وارد کنید."

	msgPhoneInvalid = `❌ شماره موبایل نامعتبر

مثال: 09121234567`

	msgRatingScorePrompt = `⭐ امتیازدهی به خدمات

لطفاً به خدمات ما امتیاز دهید.
عددی بین 1 تا 5 وارد کنید:`

	msgRatingScoreInvalid = "⚠️ لطفاً عددی بین 1 تا 5 وارد کنید."

	msgRatingCommentPrompt = `💬 لطفاً نظر خود را بنویسید (اختیاری):

برای رد شدن /skip را بفرستید.`

	msgOrdersLoading = "🔄 در حال دریافت سفارشات شما..."

	msgOrdersEmpty = `📦 سفارشات من

هیچ سفارشی یافت نشد.`

	msgSubmitting = "🔄 در حال ثبت درخواست..."

	msgSubmitRejected = "❌ ثبت درخواست توسط سامانه پذیرفته نشد. موضوع به پشتیبانی اطلاع داده شد."

	msgUpstreamFailure = `❌ خطا در پردازش درخواست

متاسفانه ارتباط با سامانه برقرار نشد. موضوع به پشتیبانی اطلاع داده شد؛ لطفاً دقایقی دیگر دوباره تلاش کنید.`

	msgTransient = "❌ خطای موقت در پردازش پیام. لطفاً دوباره تلاش کنید."

	msgCancelled = "✅ عملیات لغو شد."

	msgLoggedOut = "👋 با موفقیت از حساب کاربری خارج شدید."

	msgUnknownIdle = "از منو یکی از گزینه‌ها را انتخاب کنید 👇"

	msgHelp = `📚 راهنمای استفاده از ربات

1️⃣ احراز هویت: ابتدا با کد ملی خود وارد شوید
2️⃣ پیگیری: از شماره پذیرش یا سریال دستگاه استفاده کنید
3️⃣ خدمات ویژه: پس از ورود می‌توانید درخواست تعمیر و شکایت ثبت کنید

💡 برای خروج از هر بخش از دکمه انصراف استفاده کنید.
جلسه شما پس از مدتی غیرفعالی منقضی می‌شود.`
)

func msgAuthSuccess(name string) string {
	if name == "" {
		name = "کاربر"
	}
	return fmt.Sprintf("✅ احراز هویت موفق\n\nخوش آمدید %s عزیز!", name)
}

func msgOrderDetails(o *gateway.Order) string {
	var b strings.Builder
	b.WriteString("📦 جزئیات سفارش\n\n")
	fmt.Fprintf(&b, "🔢 شماره پذیرش: %s\n", o.Number)
	if o.CustomerName != "" {
		fmt.Fprintf(&b, "👤 نام: %s\n", o.CustomerName)
	}
	if o.DeviceModel != "" {
		fmt.Fprintf(&b, "📱 دستگاه: %s\n", o.DeviceModel)
	}
	fmt.Fprintf(&b, "📍 وضعیت: %s\n", gateway.StepDisplay(o.Step))
	fmt.Fprintf(&b, "📊 پیشرفت: %d%%\n", gateway.Progress(o.Step))
	if o.RegistrationDate != "" {
		fmt.Fprintf(&b, "📅 تاریخ ثبت: %s\n", o.RegistrationDate)
	}
	if o.TrackingCode != "" {
		fmt.Fprintf(&b, "🔍 کد رهگیری: %s\n", o.TrackingCode)
	}
	if o.RepairNote != "" {
		fmt.Fprintf(&b, "📝 تعمیرات: %s\n", o.RepairNote)
	}
	if o.TotalCost > 0 {
		fmt.Fprintf(&b, "💰 هزینه: %d ریال\n", o.TotalCost)
	}
	return strings.TrimRight(b.String(), "\n")
}

func msgRatingThanks(score int, comment string) string {
	if comment == "" {
		comment = "بدون نظر"
	}
	return fmt.Sprintf(`🙏 سپاس از نظر ارزشمند شما

⭐ امتیاز شما: %s
💬 نظر شما: %s

نظرات شما به ما کمک می‌کند خدمات بهتری ارائه دهیم.
با آرزوی روزهای خوش برای شما 🌹`, strings.Repeat("⭐", score), comment)
}

// msgOrdersList renders the most recent orders, capped at five lines.
func msgOrdersList(orders []gateway.Order) string {
	if len(orders) == 0 {
		return msgOrdersEmpty
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 سفارشات من (%d)\n", len(orders))
	shown := orders
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for i, o := range shown {
		fmt.Fprintf(&b, "\n%d. %s %s\n", i+1, gateway.StepIcon(o.Step), o.Number)
		if d := datePart(o.RegistrationDate); d != "" {
			fmt.Fprintf(&b, "   📅 %s\n", d)
		}
	}
	if len(orders) > len(shown) {
		fmt.Fprintf(&b, "\nو %d سفارش دیگر...", len(orders)-len(shown))
	}
	return strings.TrimRight(b.String(), "\n")
}

// datePart drops the time component of a backend timestamp.
func datePart(ts string) string {
	if i := strings.IndexAny(ts, "T "); i > 0 {
		return ts[:i]
	}
	return ts
}

func msgSubmitAccepted(ticket string) string {
	if ticket == "" {
		ticket = "---"
	}
	return fmt.Sprintf(`✅ درخواست شما با موفقیت ثبت شد

🎫 شماره پیگیری: %s

⏰ کارشناسان ما در اسرع وقت با شما تماس خواهند گرفت.
🙏 از صبر و شکیبایی شما سپاسگزاریم`, ticket)
}

func msgSubmitDuplicate(ticket string) string {
	if ticket == "" {
		return "✅ این درخواست قبلاً ثبت شده است و در حال پیگیری است."
	}
	return fmt.Sprintf("✅ این درخواست قبلاً با شماره پیگیری %s ثبت شده است.", ticket)
}
