// Package loanarm automates lending and returning of office items with
// a six-servo robot arm and a camera classifier.
//
// Borrowing picks the item from its storage slot and delivers it to
// the drop zone. Return mode parks the arm over the drop zone, polls
// the classifier until an item is stably identified, then stores it
// and marks it available again.
//
// # Usage
//
//	go install github.com/officebot/loanarm/cmd/loanarm@latest
//
// Calibrate the arm positions, then run it:
//
//	loanarm calibrate
//	loanarm borrow --item "Computer Mouse"
//	loanarm return-mode
//	loanarm status
//
// # Packages
//
//   - cmd/loanarm: CLI with borrow, return-mode, status and calibrate commands
//   - pkg/robot: position store, servo driver, motion orchestrator
//   - pkg/inventory: item availability ledger
//   - pkg/detect: return-mode detection supervisor and classifier boundary
//   - pkg/statusbus: progress event fan-out
//   - pkg/config: runtime settings
package loanarm
