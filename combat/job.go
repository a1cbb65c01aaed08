package combat

import (
	"encoding/json"
	"strings"
)

// Job is a player class or job code as reported by the aggregator.
type Job int

// Known jobs. The order matches the game's class/job ids.
const (
	JobUnknown Job = iota
	JobGLA
	JobPGL
	JobMRD
	JobLNC
	JobARC
	JobCNJ
	JobTHM
	JobCRP
	JobBSM
	JobARM
	JobGSM
	JobLTW
	JobWVR
	JobALC
	JobCUL
	JobMIN
	JobBTN
	JobFSH
	JobPLD
	JobMNK
	JobWAR
	JobDRG
	JobBRD
	JobWHM
	JobBLM
	JobACN
	JobSMN
	JobSCH
	JobROG
	JobNIN
	JobMCH
	JobDRK
	JobAST
	JobSAM
	JobRDM
	JobBLU
	JobGNB
	JobDNC
	JobRPR
	JobSGE
	JobVPR
	JobPCT
	JobLMB
	jobCount
)

// JobType groups jobs by role.
type JobType int

// Job roles.
const (
	JobTypeOther JobType = iota
	JobTypeTank
	JobTypeHealer
	JobTypeMelee
	JobTypeRanged
	JobTypeCaster
	JobTypeCrafter
	JobTypeGatherer
)

type jobInfo struct {
	code string
	name string
	kind JobType
}

var jobTable = [jobCount]jobInfo{
	JobUnknown: {"UKN", "Unknown", JobTypeOther},
	JobGLA:     {"GLA", "Gladiator", JobTypeTank},
	JobPGL:     {"PGL", "Pugilist", JobTypeMelee},
	JobMRD:     {"MRD", "Marauder", JobTypeTank},
	JobLNC:     {"LNC", "Lancer", JobTypeMelee},
	JobARC:     {"ARC", "Archer", JobTypeRanged},
	JobCNJ:     {"CNJ", "Conjurer", JobTypeHealer},
	JobTHM:     {"THM", "Thaumaturge", JobTypeCaster},
	JobCRP:     {"CRP", "Carpenter", JobTypeCrafter},
	JobBSM:     {"BSM", "Blacksmith", JobTypeCrafter},
	JobARM:     {"ARM", "Armorer", JobTypeCrafter},
	JobGSM:     {"GSM", "Goldsmith", JobTypeCrafter},
	JobLTW:     {"LTW", "Leatherworker", JobTypeCrafter},
	JobWVR:     {"WVR", "Weaver", JobTypeCrafter},
	JobALC:     {"ALC", "Alchemist", JobTypeCrafter},
	JobCUL:     {"CUL", "Culinarian", JobTypeCrafter},
	JobMIN:     {"MIN", "Miner", JobTypeGatherer},
	JobBTN:     {"BTN", "Botanist", JobTypeGatherer},
	JobFSH:     {"FSH", "Fisher", JobTypeGatherer},
	JobPLD:     {"PLD", "Paladin", JobTypeTank},
	JobMNK:     {"MNK", "Monk", JobTypeMelee},
	JobWAR:     {"WAR", "Warrior", JobTypeTank},
	JobDRG:     {"DRG", "Dragoon", JobTypeMelee},
	JobBRD:     {"BRD", "Bard", JobTypeRanged},
	JobWHM:     {"WHM", "White Mage", JobTypeHealer},
	JobBLM:     {"BLM", "Black Mage", JobTypeCaster},
	JobACN:     {"ACN", "Arcanist", JobTypeCaster},
	JobSMN:     {"SMN", "Summoner", JobTypeCaster},
	JobSCH:     {"SCH", "Scholar", JobTypeHealer},
	JobROG:     {"ROG", "Rogue", JobTypeMelee},
	JobNIN:     {"NIN", "Ninja", JobTypeMelee},
	JobMCH:     {"MCH", "Machinist", JobTypeRanged},
	JobDRK:     {"DRK", "Dark Knight", JobTypeTank},
	JobAST:     {"AST", "Astrologian", JobTypeHealer},
	JobSAM:     {"SAM", "Samurai", JobTypeMelee},
	JobRDM:     {"RDM", "Red Mage", JobTypeCaster},
	JobBLU:     {"BLU", "Blue Mage", JobTypeCaster},
	JobGNB:     {"GNB", "Gunbreaker", JobTypeTank},
	JobDNC:     {"DNC", "Dancer", JobTypeRanged},
	JobRPR:     {"RPR", "Reaper", JobTypeMelee},
	JobSGE:     {"SGE", "Sage", JobTypeHealer},
	JobVPR:     {"VPR", "Viper", JobTypeMelee},
	JobPCT:     {"PCT", "Pictomancer", JobTypeCaster},
	JobLMB:     {"LMB", "Limit Break", JobTypeOther},
}

var jobsByCode = func() map[string]Job {
	m := make(map[string]Job, jobCount)
	for j := JobUnknown; j < jobCount; j++ {
		m[jobTable[j].code] = j
	}
	return m
}()

// ParseJob returns the job for code, ignoring case. Unrecognised codes
// return JobUnknown.
func ParseJob(code string) Job {
	if j, ok := jobsByCode[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return j
	}
	return JobUnknown
}

func (j Job) info() jobInfo {
	if j < 0 || j >= jobCount {
		return jobTable[JobUnknown]
	}
	return jobTable[j]
}

// String returns the upper-case job code, e.g. "WHM".
func (j Job) String() string { return j.info().code }

// FullName returns the display name, e.g. "White Mage".
func (j Job) FullName() string { return j.info().name }

// Type returns the job's role.
func (j Job) Type() JobType { return j.info().kind }

// UnmarshalJSON decodes a job code string. Anything else, or an unknown
// code, yields JobUnknown without error.
func (j *Job) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		*j = JobUnknown
		return nil
	}
	*j = ParseJob(code)
	return nil
}

// MarshalJSON encodes the job code.
func (j Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.String())
}

// String returns the role name.
func (t JobType) String() string {
	switch t {
	case JobTypeTank:
		return "tank"
	case JobTypeHealer:
		return "healer"
	case JobTypeMelee:
		return "melee"
	case JobTypeRanged:
		return "ranged"
	case JobTypeCaster:
		return "caster"
	case JobTypeCrafter:
		return "crafter"
	case JobTypeGatherer:
		return "gatherer"
	default:
		return "other"
	}
}

// IsCombat reports whether the role takes part in combat.
func (t JobType) IsCombat() bool {
	return t >= JobTypeTank && t <= JobTypeCaster
}
