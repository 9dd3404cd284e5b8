package command

import "fmt"

// Group partitions the opcode space into the daemon's four command families.
type Group int

const (
	// GroupDaemon holds daemon meta-commands.
	GroupDaemon Group = iota
	// GroupStatus holds read-only spectrometer status queries.
	GroupStatus
	// GroupSetting holds read/write instrument settings and acquisition.
	GroupSetting
	// GroupSequence holds acquisition/sequence control commands.
	GroupSequence
)

func (g Group) String() string {
	switch g {
	case GroupDaemon:
		return "daemon"
	case GroupStatus:
		return "status"
	case GroupSetting:
		return "setting"
	case GroupSequence:
		return "sequence"
	default:
		return fmt.Sprintf("group(%d)", int(g))
	}
}

// Command binds an operation name to its single-byte opcode.
type Command struct {
	Name   string
	Opcode byte
	Group  Group
}

func (c Command) String() string {
	return fmt.Sprintf("%s(0x%02X)", c.Name, c.Opcode)
}

// Command names understood by the STS daemon.
const (
	GetVersion = "get_version"

	GetWavelengths             = "get_wavelengths"
	GetSerialNumber            = "get_serial_number"
	GetName                    = "get_name"
	GetIntegrationTimeMinimum  = "get_integration_time_minimum"
	GetIntegrationTimeMaximum  = "get_integration_time_maximum"
	GetIntensityMaximum        = "get_intensity_maximum"
	SetIntegrationTime         = "set_integration_time"
	GetIntegrationTime         = "get_integration_time"
	SetBoxcarWidth             = "set_boxcar_width"
	GetBoxcarWidth             = "get_boxcar_width"
	SetScansToAverage          = "set_scans_to_average"
	GetScansToAverage          = "get_scans_to_average"
	SetTargetURL               = "set_target_url"
	GetTargetURL               = "get_target_url"
	GetSpectrum                = "get_spectrum"
	GetCalibrationFromBuffer   = "get_calibration_coefficients_from_buffer"
	SetCalibrationToBuffer     = "set_calibration_coefficients_to_buffer"
	GetCalibrationFromEEPROM   = "get_calibration_coefficients_from_eeprom"
	SetCalibrationToEEPROM     = "set_calibration_coefficients_to_eeprom"
	GetPixelBinningFactor      = "get_pixel_binning_factor"
	SetPixelBinningFactor      = "set_pixel_binning_factor"
	GetElectricDarkCorrection  = "get_electric_dark_correction"
	SetElectricDarkCorrection  = "set_electric_dark_correction"
	GetCurrentStatus           = "get_current_status"
	GetCurrentSpectrum         = "get_current_spectrum"
	SetMaxAcquisitions         = "set_max_acquisitions"
	GetMaxAcquisitions         = "get_max_acquisitions"
	SetFileSaveMode            = "set_file_save_mode"
	GetFileSaveMode            = "get_file_save_mode"
	SetFilePrefix              = "set_file_prefix"
	GetFilePrefix              = "get_file_prefix"
	SetSequenceType            = "set_sequence_type"
	GetSequenceType            = "get_sequence_type"
	SetSequenceInterval        = "set_sequence_interval"
	GetSequenceInterval        = "get_sequence_interval"
	SetSaveDirectory           = "set_save_directory"
	GetSaveDirectory           = "get_save_directory"
	SaveSpectrum               = "save_spectrum"
	StartSequence              = "start_sequence"
	PauseSequence              = "pause_sequence"
	ResumeSequence             = "resume_sequence"
	StopSequence               = "stop_sequence"
	GetSequenceState           = "get_sequence_state"
	GetCurrentSequenceNumber   = "get_current_sequence_number"
	SetScopeMode               = "set_scope_mode"
	GetScopeMode               = "get_scope_mode"
	SetScopeInterval           = "set_scope_interval"
	GetScopeInterval           = "get_scope_interval"
)

// stsCommands is the STS daemon opcode table. Opcodes 0x19-0x1F are unassigned.
var stsCommands = []Command{
	{GetVersion, 0x0D, GroupDaemon},

	{GetWavelengths, 0x0A, GroupStatus},
	{GetSerialNumber, 0x0B, GroupStatus},
	{GetName, 0x0C, GroupStatus},
	{GetIntegrationTimeMinimum, 0x14, GroupStatus},
	{GetIntegrationTimeMaximum, 0x15, GroupStatus},
	{GetIntensityMaximum, 0x16, GroupStatus},

	{SetIntegrationTime, 0x01, GroupSetting},
	{GetIntegrationTime, 0x02, GroupSetting},
	{SetBoxcarWidth, 0x03, GroupSetting},
	{GetBoxcarWidth, 0x04, GroupSetting},
	{SetScansToAverage, 0x05, GroupSetting},
	{GetScansToAverage, 0x06, GroupSetting},
	{SetTargetURL, 0x07, GroupSetting},
	{GetTargetURL, 0x08, GroupSetting},
	{GetSpectrum, 0x09, GroupSetting},
	{GetCalibrationFromBuffer, 0x0E, GroupSetting},
	{SetCalibrationToBuffer, 0x0F, GroupSetting},
	{GetCalibrationFromEEPROM, 0x10, GroupSetting},
	{SetCalibrationToEEPROM, 0x11, GroupSetting},
	{GetPixelBinningFactor, 0x12, GroupSetting},
	{SetPixelBinningFactor, 0x13, GroupSetting},
	{GetElectricDarkCorrection, 0x17, GroupSetting},
	{SetElectricDarkCorrection, 0x18, GroupSetting},

	{GetCurrentStatus, 0x20, GroupSequence},
	{GetCurrentSpectrum, 0x21, GroupSequence},
	{SetMaxAcquisitions, 0x22, GroupSequence},
	{GetMaxAcquisitions, 0x23, GroupSequence},
	{SetFileSaveMode, 0x24, GroupSequence},
	{GetFileSaveMode, 0x25, GroupSequence},
	{SetFilePrefix, 0x26, GroupSequence},
	{GetFilePrefix, 0x27, GroupSequence},
	{SetSequenceType, 0x28, GroupSequence},
	{GetSequenceType, 0x29, GroupSequence},
	{SetSequenceInterval, 0x2A, GroupSequence},
	{GetSequenceInterval, 0x2B, GroupSequence},
	{SetSaveDirectory, 0x2C, GroupSequence},
	{GetSaveDirectory, 0x2D, GroupSequence},
	{SaveSpectrum, 0x2E, GroupSequence},
	{StartSequence, 0x2F, GroupSequence},
	{PauseSequence, 0x30, GroupSequence},
	{ResumeSequence, 0x31, GroupSequence},
	{StopSequence, 0x32, GroupSequence},
	{GetSequenceState, 0x33, GroupSequence},
	{GetCurrentSequenceNumber, 0x34, GroupSequence},
	{SetScopeMode, 0x35, GroupSequence},
	{GetScopeMode, 0x36, GroupSequence},
	{SetScopeInterval, 0x37, GroupSequence},
	{GetScopeInterval, 0x38, GroupSequence},
}
