// Package redirect resolves where a customer is sent after a terminal
// payment outcome. Selection is a pure function of the transaction snapshot;
// navigation and countdown timers belong to the flow controller.
package redirect

import (
	"fmt"
	"time"

	"verification-service/models"
)

const (
	// Countdown before auto-navigation on a terminal screen.
	SuccessCountdown = 10 * time.Second
	// Extended when a store URL exists so the customer can notice the
	// "visit store" option before being swept to the homepage.
	SuccessCountdownWithStore = 30 * time.Second
	FailureCountdown          = 10 * time.Second
)

// SuccessDestination picks the post-success target. Priority: the page's
// custom redirect URL, then its store URL, then the homepage.
func SuccessDestination(snapshot *models.TransactionSnapshot) models.RedirectDestination {
	page := paymentPage(snapshot)

	if page.RedirectURL != "" {
		return models.RedirectDestination{
			URL:   page.RedirectURL,
			Label: "Continue",
			Kind:  models.KindCustom,
		}
	}
	if page.StoreURL != "" {
		return models.RedirectDestination{
			URL:   page.StoreURL,
			Label: "Visit store",
			Kind:  models.KindStore,
		}
	}
	return homepage()
}

// FailureDestination picks where a failed payment retries. Priority: the
// page's short-code URL, its full public URL, a URL composed from the vendor
// and page slugs, then the homepage. The homepage branch indicates an
// incomplete payment-page record upstream.
func FailureDestination(snapshot *models.TransactionSnapshot) models.RedirectDestination {
	page := paymentPage(snapshot)

	if page.ShortCode != "" {
		return models.RedirectDestination{
			URL:   fmt.Sprintf("/q/%s", page.ShortCode),
			Label: "Try again",
			Kind:  models.KindPaymentPage,
		}
	}
	if page.PublicURL != "" {
		return models.RedirectDestination{
			URL:   page.PublicURL,
			Label: "Try again",
			Kind:  models.KindPaymentPage,
		}
	}
	if page.VendorSlug != "" && page.Slug != "" {
		return models.RedirectDestination{
			URL:   fmt.Sprintf("/pay/%s/%s", page.VendorSlug, page.Slug),
			Label: "Try again",
			Kind:  models.KindPaymentPage,
		}
	}
	return homepage()
}

// SuccessCountdownFor returns the auto-redirect window after a successful
// payment for the given snapshot.
func SuccessCountdownFor(snapshot *models.TransactionSnapshot) time.Duration {
	if paymentPage(snapshot).StoreURL != "" {
		return SuccessCountdownWithStore
	}
	return SuccessCountdown
}

func paymentPage(snapshot *models.TransactionSnapshot) models.PaymentPageConfig {
	if snapshot == nil || snapshot.PaymentPage == nil {
		return models.PaymentPageConfig{}
	}
	return *snapshot.PaymentPage
}

func homepage() models.RedirectDestination {
	return models.RedirectDestination{
		URL:        "/",
		Label:      "Go to homepage",
		Kind:       models.KindHomepage,
		IsFallback: true,
	}
}
