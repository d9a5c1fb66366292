package merge

import (
	"sort"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// ValidateUniqueNames fails with a *DuplicateNameError if any object name is
// declared by more than one source file. Repeats within one file are not flagged.
func ValidateUniqueNames(stmts []core.Statement) error {
	firstFile := make(map[string]string, len(stmts))
	files := make(map[string]map[string]bool)

	for _, s := range stmts {
		first, seen := firstFile[s.Name]
		if !seen {
			firstFile[s.Name] = s.SourceFile
			continue
		}
		if first == s.SourceFile {
			continue
		}
		if files[s.Name] == nil {
			files[s.Name] = map[string]bool{first: true}
		}
		files[s.Name][s.SourceFile] = true
	}

	if len(files) == 0 {
		return nil
	}

	duplicates := make([]DuplicateName, 0, len(files))
	for name, set := range files {
		list := make([]string, 0, len(set))
		for f := range set {
			list = append(list, f)
		}
		sort.Strings(list)
		duplicates = append(duplicates, DuplicateName{Name: name, Files: list})
	}
	sort.Slice(duplicates, func(i, j int) bool {
		return duplicates[i].Name < duplicates[j].Name
	})

	return &DuplicateNameError{Duplicates: duplicates}
}

// ValidateFileOrder fails with an *InvalidStatementOrderError when a statement
// depends on an object declared later in the same file. Dependencies on objects
// from other files are left to the topological sort. Files are checked in the
// order they first appear in stmts.
func ValidateFileOrder(stmts []core.Statement) error {
	var fileOrder []string
	byFile := make(map[string][]core.Statement)
	for _, s := range stmts {
		if _, ok := byFile[s.SourceFile]; !ok {
			fileOrder = append(fileOrder, s.SourceFile)
		}
		byFile[s.SourceFile] = append(byFile[s.SourceFile], s)
	}

	for _, file := range fileOrder {
		if err := validateOneFile(file, byFile[file]); err != nil {
			return err
		}
	}
	return nil
}

// validateOneFile checks a single file's statements in declared order.
// Positions are indexes into the file's statement list. Each record is
// judged by its own dependencies, so a repeated name does not share edges.
func validateOneFile(file string, stmts []core.Statement) error {
	if len(stmts) < 2 {
		return nil
	}

	position := make(map[string]int, len(stmts))
	for i, s := range stmts {
		if _, ok := position[s.Name]; !ok {
			position[s.Name] = i
		}
	}

	for i, s := range stmts {
		for _, dep := range s.NonSelfDependencyNames() {
			j, local := position[dep]
			if local && j > i {
				return &InvalidStatementOrderError{
					File:               file,
					Statement:          s.Name,
					Position:           i,
					Dependency:         dep,
					DependencyPosition: j,
				}
			}
		}
	}
	return nil
}
