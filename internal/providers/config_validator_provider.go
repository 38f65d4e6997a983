package providers

import (
	"fmt"
	"rsd/internal/models"
	"rsd/internal/structures"
	"time"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors.OneError()
	}

	if len(cv.conf.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	seen := make(map[string]bool, len(cv.conf.Sources))
	for _, src := range cv.conf.Sources {
		if _, ok := models.ParseRegion(src.Region); !ok {
			return fmt.Errorf("source %s: unknown region %q (valid: %v)", src.Provider, src.Region, models.RegionNames())
		}
		key := src.Provider + "/" + src.Region
		if seen[key] {
			return fmt.Errorf("duplicate source %s", key)
		}
		seen[key] = true
		if src.Interval < time.Second {
			return fmt.Errorf("source %s: interval %s is below the 1s minimum", key, src.Interval)
		}
	}

	if !cv.conf.Storage.InMemory && cv.conf.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required unless storage.inMemory is set")
	}

	if cv.conf.Lock.Enabled && cv.conf.Lock.RenewInterval >= cv.conf.Lock.TTL {
		return fmt.Errorf("lock.renewInterval (%s) must be shorter than lock.ttl (%s)", cv.conf.Lock.RenewInterval, cv.conf.Lock.TTL)
	}

	return nil
}
