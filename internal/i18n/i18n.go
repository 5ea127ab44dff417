// internal/i18n/i18n.go
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type I18n struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	defaultLang  string
}

var instance *I18n
var once sync.Once

// defaultEnglish is the built-in catalogue. Locale files on disk overlay it,
// so a deployment without a locales directory still serves English.
var defaultEnglish = map[string]string{
	KeySuccess: "Success",
	KeyError:   "An error occurred",

	KeyAuthRequired:     "Authentication required",
	KeyAuthInvalidToken: "Invalid authentication token",
	KeyAuthTokenExpired: "Authentication token expired",

	KeyUserNotFound:    "User not found",
	KeyUserNotEligible: "Account is not eligible to invest",

	KeyPropertyNotFound: "Property not found",
	KeyPropertySoldOut:  "Property is sold out",
	KeyPropertyInactive: "Property is not open for investment",

	KeyInvestmentNotFound:       "Investment not found",
	KeyInvestmentPurchased:      "Purchase completed",
	KeyInvestmentPendingTokens:  "Payment received, token transfer in progress",
	KeyInvestmentRefunded:       "Purchase could not be completed, payment refunded",
	KeyInvestmentBelowMinimum:   "Purchase is below the minimum investment",
	KeyInvestmentNotEnoughStock: "Not enough tokens available",

	KeyTransactionNotFound:     "Transaction not found",
	KeyTransactionNotRetryable: "Transaction is not eligible for retry",

	KeyPaymentFailed:         "Payment failed",
	KeyPaymentRefunded:       "Payment refunded",
	KeyPaymentMethodRequired: "A payment method is required",

	KeyComplianceBlocked:     "Purchase blocked by investment limits",
	KeyComplianceUnavailable: "Compliance check is temporarily unavailable",

	KeyAdminAccessDenied: "Admin access denied",

	KeyValidationRequired: "%s is required",
	KeyValidationInvalid:  "Invalid %s",
}

func Initialize(localesPath string) error {
	var err error
	once.Do(func() {
		instance = &I18n{
			translations: map[string]map[string]string{
				"en": defaultEnglish,
			},
			defaultLang: "en",
		}
		err = instance.LoadTranslations(localesPath)
	})
	return err
}

// LoadTranslations overlays locale files from localesPath. Missing files are
// skipped; the built-in catalogue remains the fallback.
func (i *I18n) LoadTranslations(localesPath string) error {
	localeFiles := []string{"en.json", "zh_TW.json"}

	for _, file := range localeFiles {
		lang := strings.TrimSuffix(file, ".json")
		filePath := filepath.Join(localesPath, file)

		data, err := os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read locale file %s: %w", filePath, err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", filePath, err)
		}

		i.mu.Lock()
		if existing, ok := i.translations[lang]; ok {
			for k, v := range translations {
				existing[k] = v
			}
		} else {
			i.translations[lang] = translations
		}
		i.mu.Unlock()
	}

	return nil
}

func (i *I18n) T(lang, key string, args ...interface{}) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	// Try to get translation for requested language
	if translations, exists := i.translations[lang]; exists {
		if text, exists := translations[key]; exists {
			if len(args) > 0 {
				return fmt.Sprintf(text, args...)
			}
			return text
		}
	}

	// Fallback to default language
	if lang != i.defaultLang {
		if translations, exists := i.translations[i.defaultLang]; exists {
			if text, exists := translations[key]; exists {
				if len(args) > 0 {
					return fmt.Sprintf(text, args...)
				}
				return text
			}
		}
	}

	// Return key if no translation found
	return key
}

// Global functions
func T(lang, key string, args ...interface{}) string {
	if instance != nil {
		return instance.T(lang, key, args...)
	}
	if text, ok := defaultEnglish[key]; ok {
		if len(args) > 0 {
			return fmt.Sprintf(text, args...)
		}
		return text
	}
	return key
}

func GetSupportedLanguages() []string {
	if instance == nil {
		return []string{"en"}
	}

	instance.mu.RLock()
	defer instance.mu.RUnlock()

	langs := make([]string, 0, len(instance.translations))
	for lang := range instance.translations {
		langs = append(langs, lang)
	}
	return langs
}
