package domain

import (
	"fmt"
	"strings"
)

type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusPending  AccountStatus = "pending"
	StatusInactive AccountStatus = "inactive"
)

type AccountType string

const (
	AccountExclusive    AccountType = "exclusive"
	AccountNonExclusive AccountType = "non_exclusive"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleUser    UserRole = "user"
)

type DeviceStatus string

const (
	DeviceActive         DeviceStatus = "active"
	DeviceInactive       DeviceStatus = "inactive"
	DeviceMaintenance    DeviceStatus = "maintenance"
	DeviceDecommissioned DeviceStatus = "decommissioned"
)

type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPublished ContentStatus = "published"
	ContentArchived  ContentStatus = "archived"
)

type DocumentType string

const (
	DocManual            DocumentType = "manual"
	DocDatasheet         DocumentType = "datasheet"
	DocCertificate       DocumentType = "certificate"
	DocCalibration       DocumentType = "calibration"
	DocMaintenanceReport DocumentType = "maintenance_report"
	DocInstallationGuide DocumentType = "installation_guide"
	DocCustom            DocumentType = "custom"
	DocOther             DocumentType = "other"
)

type DocumentStatus string

const (
	DocumentActive     DocumentStatus = "active"
	DocumentArchived   DocumentStatus = "archived"
	DocumentSuperseded DocumentStatus = "superseded"
)

type TargetType string

const (
	TargetAll          TargetType = "all"
	TargetDistributors TargetType = "distributors"
	TargetDevices      TargetType = "devices"
)

// canonical lower-cases and trims a raw status string. Legacy rows carry
// mixed casing ("Published") and must compare equal to the enum.
func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func oneOf[T ~string](raw string, allowed ...T) (T, error) {
	v := T(canonical(raw))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q", raw)
}

func ParseAccountStatus(s string) (AccountStatus, error) {
	return oneOf(s, StatusActive, StatusPending, StatusInactive)
}

func ParseAccountType(s string) (AccountType, error) {
	return oneOf(strings.ReplaceAll(s, "-", "_"), AccountExclusive, AccountNonExclusive)
}

func ParseUserRole(s string) (UserRole, error) {
	return oneOf(s, RoleAdmin, RoleManager, RoleUser)
}

func ParseDeviceStatus(s string) (DeviceStatus, error) {
	return oneOf(s, DeviceActive, DeviceInactive, DeviceMaintenance, DeviceDecommissioned)
}

func ParseContentStatus(s string) (ContentStatus, error) {
	return oneOf(s, ContentDraft, ContentPublished, ContentArchived)
}

func ParseDocumentType(s string) (DocumentType, error) {
	return oneOf(s, DocManual, DocDatasheet, DocCertificate, DocCalibration,
		DocMaintenanceReport, DocInstallationGuide, DocCustom, DocOther)
}

func ParseTargetType(s string) (TargetType, error) {
	return oneOf(s, TargetAll, TargetDistributors, TargetDevices)
}
