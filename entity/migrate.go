package entity

import "gorm.io/gorm"

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&BattleInvitation{},
		&Battle{},
		&BattleMembership{},
		&Submission{},
		&SubmissionTestResult{},
		&BattleResult{},
		&BattleEvaluation{},
		&Problem{},
		&TestCase{},
	)
}
