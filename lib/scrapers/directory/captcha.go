package directory

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cpaintel-backend/lib/htmlutil"
)

var captchaSelectors = []string{
	".g-recaptcha",
	".h-captcha",
	"#challenge-form",
	"script[src*='recaptcha']",
	"script[src*='hcaptcha']",
	"iframe[src*='captcha']",
}

// DetectCaptcha looks for an explicit challenge marker. Response
// length is deliberately not used as a signal: legitimately short
// pages would trigger false positives.
func DetectCaptcha(doc *goquery.Document) bool {
	for _, selector := range captchaSelectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	body := strings.ToLower(htmlutil.CleanText(doc.Find("body")))
	return strings.Contains(body, "verify you are human") ||
		strings.Contains(body, "checking your browser")
}
