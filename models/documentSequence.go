package models

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mmdatafocus/workorder_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DocumentPrefixWorkOrder       = "WO-"
	DocumentPrefixMaterialIssue   = "MI-"
	DocumentPrefixPurchaseRequest = "PR-"
)

// DocumentSequence hands out gap-free human-readable numbers per prefix.
type DocumentSequence struct {
	Prefix string `gorm:"primaryKey;size:10" json:"prefix"`
	LastNo int    `gorm:"not null;default:0" json:"last_no"`
}

// NextDocumentNumber must run inside the transaction that stores the document, so a
// rollback also returns the number.
func NextDocumentNumber(tx *gorm.DB, prefix string) (string, int, error) {
	var seq DocumentSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("prefix = ?", prefix).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = DocumentSequence{Prefix: prefix}
		if err := tx.Create(&seq).Error; err != nil {
			if !utils.IsDuplicateKeyError(err) {
				return "", 0, err
			}
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("prefix = ?", prefix).First(&seq).Error
			if err != nil {
				return "", 0, err
			}
		}
	} else if err != nil {
		return "", 0, err
	}

	next := seq.LastNo + 1
	if err := tx.Model(&DocumentSequence{}).Where("prefix = ?", prefix).Update("last_no", next).Error; err != nil {
		return "", 0, err
	}
	return FormatDocumentNumber(prefix, next), next, nil
}

func FormatDocumentNumber(prefix string, seqNo int) string {
	return fmt.Sprintf("%s%05d", prefix, seqNo)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
