package keywords

import "github.com/lawbot/backend/internal/arabic"

// rawStopwords lists question words, pronouns, demonstratives,
// particles, generic verbs and nouns, polite fillers, country
// references and boilerplate legal words that carry no topical signal.
// Entries are written in natural spelling and normalized at init.
var rawStopwords = []string{
	// Question words
	"ما", "ماذا", "من", "متى", "أين", "كيف", "لماذا", "هل", "أي", "كم", "أيّ", "أيّة",
	"ماهي", "ماهو", "ماهم", "ماهن",

	// Pronouns
	"هو", "هي", "هما", "هم", "هن", "أنا", "أنت", "أنتم", "أنتن", "نحن", "أنتِ",
	"إياه", "إياها", "إياهم", "إياك", "إياكم", "إيانا",

	// Demonstratives and relatives
	"هذا", "هذه", "هذان", "هاتان", "هؤلاء", "ذلك", "تلك", "ذانك", "تانك", "أولئك",
	"الذي", "التي", "اللذان", "اللتان", "الذين", "اللاتي", "اللواتي",

	// Prepositions and particles
	"في", "إلى", "على", "عن", "مع", "بـ", "لـ", "كـ", "الى",
	"عند", "لدى", "حتى", "منذ", "بعد", "قبل", "خلال", "أثناء", "حول", "ضد",
	"بين", "فوق", "تحت", "أمام", "خلف", "داخل", "خارج",

	// Conjunctions
	"و", "أو", "لكن", "لأن", "إن", "أن", "قد", "لقد", "لم", "لن", "ليس",
	"ثم", "أم", "بل", "حيث", "إذ", "إذا", "لو", "لولا", "كأن", "فإن",

	// Generic verbs
	"كان", "كانت", "يكون", "تكون", "يمكن", "تمكن", "يجب", "تجب",
	"أريد", "نريد", "أرغب", "نرغب", "أبحث", "نبحث", "أسأل", "نسأل",
	"يعني", "تعني", "يوجد", "توجد", "يحتاج", "تحتاج",

	// Generic nouns
	"شيء", "أشياء", "شخص", "أشخاص", "مكان", "زمان", "وقت", "طريقة", "طريق",
	"كل", "بعض", "جميع", "كلا", "كلتا", "أحد", "إحدى", "بضع", "عدة",

	// Polite fillers
	"فضلك", "سمحت", "تكرم", "رجاء", "أرجو", "نرجو", "شكرا", "لطفا",

	// Country references
	"الكويت", "كويت", "الكويتي", "الكويتية", "كويتي", "كويتية",
	"دولة", "مدينة", "بلد", "محافظة",

	// Boilerplate legal words, too generic to discriminate titles
	"قانون", "القانون", "قوانين", "القوانين", "وفق", "وفقا", "حسب", "طبقا",
	"نص", "مادة", "فقرة", "بند", "نظام", "الأنظمة",

	// Articles and filler
	"ال", "الـ", "اللي", "يلي", "التالي", "التالية",
	"مثل", "نوع", "أنواع", "حالة", "حالات",
	"سؤال", "جواب", "معلومات", "تفاصيل",
}

// rawBoosters lists domain terms that mark a question as topically
// legal. Matching tokens are ranked ahead of ordinary keywords.
var rawBoosters = []string{
	// Criminal law
	"جريمة", "جرائم", "جنائي", "جنائية", "جناية", "جنحة",
	"سرقة", "قتل", "اغتصاب", "تحرش", "ضرب", "إيذاء", "تهديد",
	"مخدرات", "تزوير", "احتيال", "رشوة", "اختلاس", "غش",

	// Family law
	"طلاق", "زواج", "نفقة", "حضانة", "ولاية", "وصاية",
	"ميراث", "إرث", "تركة", "وصية", "نسب", "أحوال",
	"مهر", "عدة", "خلع", "فسخ",

	// Civil and commercial
	"عقد", "عقود", "إيجار", "بيع", "شراء", "ملكية",
	"تعويض", "ضمان", "كفالة", "رهن", "دين", "ديون",
	"شركة", "شركات", "تجارة", "تجاري", "تجارية",
	"إفلاس", "تصفية", "شيك", "كمبيالة", "سند",

	// Labor law
	"عمل", "عامل", "عمال", "عمالة", "وظيفة", "توظيف",
	"راتب", "أجر", "مكافأة", "إجازة", "فصل", "استقالة",
	"تأمين", "تأمينات", "معاش", "تقاعد", "إصابة",

	// Administrative law
	"إداري", "إدارية", "حكومي", "حكومية", "رخصة", "ترخيص",
	"تصريح", "إقامة", "جنسية", "تأشيرة", "كفيل",

	// Court procedure
	"دعوى", "قضية", "محكمة", "محاكم", "حكم", "أحكام",
	"استئناف", "نقض", "تمييز", "تنفيذ", "حبس", "سجن",
	"غرامة", "عقوبة", "عقوبات", "براءة", "إدانة",
	"محامي", "محاماة", "وكيل", "وكالة", "توكيل",

	// Property
	"عقار", "عقارات", "أرض", "أراضي", "شقة", "بناء",
	"سكن", "سكني", "صناعي", "زراعي",

	// Rights and obligations
	"حق", "حقوق", "واجب", "واجبات", "التزام", "التزامات",
	"مسؤولية", "مسؤوليات", "ضرر", "أضرار",
}

var (
	stopwords = normalizeSet(rawStopwords)
	boosters  = normalizeSet(rawBoosters)
)

func normalizeSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[arabic.Normalize(w)] = struct{}{}
	}
	return set
}

// IsStopword reports whether the word, in normalized form, carries no
// topical signal.
func IsStopword(word string) bool {
	_, ok := stopwords[arabic.Normalize(word)]
	return ok
}

// IsLegalTerm reports whether the word belongs to the legal domain
// vocabulary.
func IsLegalTerm(word string) bool {
	_, ok := boosters[arabic.Normalize(word)]
	return ok
}
