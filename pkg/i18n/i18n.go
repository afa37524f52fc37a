// Package i18n localizes user-facing messages in English and Arabic.
package i18n

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported lists the languages with a catalog, the first is the fallback.
var Supported = []language.Tag{language.English, language.Arabic}

var matcher = language.NewMatcher(Supported)

const contextKey = "language"

// Message keys. Domain errors use the same English text, so their messages
// are looked up directly.
const (
	MsgNotFound         = "%s not found"
	MsgLeadConverted    = "Lead converted successfully"
	MsgItemsReceived    = "Items received successfully"
	MsgForbidden        = "You do not have permission to access this resource."
	MsgValidationFailed = "Invalid request data. Please check your input and try again."
	MsgInternalError    = "An internal error occurred. Please try again later."
	MsgUnauthorized     = "You are not authorized to access this resource."
	MsgTooManyRequests  = "Too many requests. Please try again later."
	MsgAdminRequired    = "Admin access required"
	MsgTimeout          = "The request took too long. Please try again later."

	MsgStale             = "%s was modified by another request, reload and retry"
	MsgDuplicate         = "%s with the same unique value already exists"
	MsgReferenced        = "%s references a missing record or is still referenced"
	MsgInsufficientStock = "insufficient stock for product %s"

	MsgLeadAlreadyWon     = "lead has already been converted"
	MsgSaleLocked         = "lines of a completed or cancelled sale cannot change"
	MsgOnlyPendingDeleted = "only pending sales can be deleted"
	MsgPurchaseLocked     = "lines change only while a purchase is draft or ordered"
	MsgPurchaseCancelled  = "cancelled purchases cannot be received"
	MsgOnlyDraftDeleted   = "only draft purchases can be deleted"
	MsgReceiptStatus      = "the status of a purchase changes to and from received only through receipts"
	MsgManagerOnly        = "only the project manager can change this project"
	MsgTimelineForbidden  = "you do not have permission to view this project"
	MsgWorkloadForbidden  = "you can only view your own workload"
	MsgWidgetsAdminOnly   = "only administrators can change dashboard widgets"
)

// ResourceTemplates are the messages built around a resource name.
var ResourceTemplates = []string{MsgNotFound, MsgStale, MsgDuplicate, MsgReferenced}

var arabic = map[string]string{
	MsgNotFound:         "%s غير موجود",
	MsgLeadConverted:    "تم تحويل العميل المحتمل بنجاح",
	MsgItemsReceived:    "تم استلام العناصر بنجاح",
	MsgForbidden:        "ليس لديك صلاحية للوصول إلى هذا المورد.",
	MsgValidationFailed: "بيانات الطلب غير صالحة. يرجى التحقق من المدخلات والمحاولة مرة أخرى.",
	MsgInternalError:    "حدث خطأ داخلي. يرجى المحاولة لاحقاً.",
	MsgUnauthorized:     "غير مصرح لك بالوصول إلى هذا المورد.",
	MsgTooManyRequests:  "طلبات كثيرة جداً. يرجى المحاولة لاحقاً.",
	MsgAdminRequired:    "يتطلب صلاحيات مدير النظام",
	MsgTimeout:          "استغرق الطلب وقتاً طويلاً. يرجى المحاولة لاحقاً.",

	MsgStale:             "تم تعديل %s بواسطة طلب آخر، يرجى إعادة التحميل والمحاولة",
	MsgDuplicate:         "يوجد %s بنفس القيمة الفريدة",
	MsgReferenced:        "%s يشير إلى سجل غير موجود أو ما زال مرتبطاً بسجلات أخرى",
	MsgInsufficientStock: "المخزون غير كافٍ للمنتج %s",

	MsgLeadAlreadyWon:     "تم تحويل العميل المحتمل مسبقاً",
	MsgSaleLocked:         "لا يمكن تعديل عناصر عملية بيع مكتملة أو ملغاة",
	MsgOnlyPendingDeleted: "يمكن حذف عمليات البيع المعلقة فقط",
	MsgPurchaseLocked:     "لا يمكن تعديل العناصر إلا عندما يكون طلب الشراء مسودة أو مطلوباً",
	MsgPurchaseCancelled:  "لا يمكن استلام طلب شراء ملغي",
	MsgOnlyDraftDeleted:   "يمكن حذف طلبات الشراء المسودة فقط",
	MsgReceiptStatus:      "تتغير حالة الاستلام لطلب الشراء من خلال عمليات الاستلام فقط",
	MsgManagerOnly:        "يمكن لمدير المشروع فقط تعديل هذا المشروع",
	MsgTimelineForbidden:  "ليس لديك صلاحية لعرض هذا المشروع",
	MsgWorkloadForbidden:  "يمكنك عرض عبء العمل الخاص بك فقط",
	MsgWidgetsAdminOnly:   "يمكن لمدير النظام فقط تعديل عناصر لوحة التحكم",

	"lead":           "العميل المحتمل",
	"opportunity":    "الفرصة",
	"activity":       "النشاط",
	"customer":       "العميل",
	"product":        "المنتج",
	"sale":           "عملية البيع",
	"sale item":      "عنصر البيع",
	"supplier":       "المورد",
	"purchase":       "عملية الشراء",
	"purchase item":  "عنصر الشراء",
	"project":        "المشروع",
	"task":           "المهمة",
	"user":           "المستخدم",
	"widget":         "عنصر لوحة التحكم",
	"widget setting": "إعدادات العنصر",

	"dashboard preference": "تفضيلات لوحة التحكم",
}

func init() {
	for key, msg := range arabic {
		_ = message.SetString(language.Arabic, key, msg)
	}
}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage, fallback string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		if fb, err := language.Parse(fallback); err == nil {
			tags = []language.Tag{fb}
		}
	}
	_, index, _ := matcher.Match(tags...)
	return Supported[index]
}

// Translate renders key in the given language.
func Translate(tag language.Tag, key string, args ...any) string {
	return message.NewPrinter(tag).Sprintf(key, args...)
}

// NotFound renders the localized not-found message of a resource.
func NotFound(tag language.Tag, resource string) string {
	p := message.NewPrinter(tag)
	return p.Sprintf(MsgNotFound, p.Sprintf(resource))
}

// Middleware resolves the request language once per request.
func Middleware(fallback string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(contextKey, Match(c.Request().Header.Get("Accept-Language"), fallback))
			return next(c)
		}
	}
}

// FromEcho returns the request language, resolving it if the middleware did not run.
func FromEcho(c echo.Context) language.Tag {
	if tag, ok := c.Get(contextKey).(language.Tag); ok {
		return tag
	}
	return Match(c.Request().Header.Get("Accept-Language"), "en")
}

// Has reports whether key has a catalog entry.
func Has(key string) bool {
	_, ok := arabic[key]
	return ok
}

// T renders key in the request language.
func T(c echo.Context, key string, args ...any) string {
	return Translate(FromEcho(c), key, args...)
}
