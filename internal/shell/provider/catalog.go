package provider

// =============================================================================
// Static Catalogs
// =============================================================================
// Fallbacks used when a live API listing is unavailable, and the source of
// the default standby size per provider.

func awsRegions() []Region {
	return []Region{
		{ID: "us-east-1", Name: "US East (N. Virginia)", Available: true},
		{ID: "us-west-2", Name: "US West (Oregon)", Available: true},
		{ID: "eu-west-1", Name: "EU (Ireland)", Available: true},
		{ID: "eu-central-1", Name: "EU (Frankfurt)", Available: true},
		{ID: "ap-southeast-1", Name: "Asia Pacific (Singapore)", Available: true},
		{ID: "ap-northeast-1", Name: "Asia Pacific (Tokyo)", Available: true},
	}
}

func awsSizes() []InstanceSize {
	return []InstanceSize{
		{ID: "t3.micro", Name: "t3.micro (1 vCPU, 1 GB)", CPUCores: 1, MemoryMB: 1024, DiskGB: 8, PriceHourly: 0.0104},
		{ID: "t3.small", Name: "t3.small (2 vCPU, 2 GB)", CPUCores: 2, MemoryMB: 2048, DiskGB: 20, PriceHourly: 0.0208},
		{ID: "t3.medium", Name: "t3.medium (2 vCPU, 4 GB)", CPUCores: 2, MemoryMB: 4096, DiskGB: 40, PriceHourly: 0.0416},
		{ID: "t3.large", Name: "t3.large (2 vCPU, 8 GB)", CPUCores: 2, MemoryMB: 8192, DiskGB: 80, PriceHourly: 0.0832},
	}
}

func digitalOceanRegions() []Region {
	return []Region{
		{ID: "nyc3", Name: "New York 3", Available: true},
		{ID: "sfo3", Name: "San Francisco 3", Available: true},
		{ID: "ams3", Name: "Amsterdam 3", Available: true},
		{ID: "fra1", Name: "Frankfurt 1", Available: true},
		{ID: "sgp1", Name: "Singapore 1", Available: true},
	}
}

func digitalOceanSizes() []InstanceSize {
	return []InstanceSize{
		{ID: "s-1vcpu-1gb", Name: "Basic (1 vCPU, 1 GB)", CPUCores: 1, MemoryMB: 1024, DiskGB: 25, PriceHourly: 0.00893},
		{ID: "s-2vcpu-2gb", Name: "Basic (2 vCPU, 2 GB)", CPUCores: 2, MemoryMB: 2048, DiskGB: 60, PriceHourly: 0.02679},
		{ID: "s-2vcpu-4gb", Name: "Basic (2 vCPU, 4 GB)", CPUCores: 2, MemoryMB: 4096, DiskGB: 80, PriceHourly: 0.03571},
		{ID: "s-4vcpu-8gb", Name: "Basic (4 vCPU, 8 GB)", CPUCores: 4, MemoryMB: 8192, DiskGB: 160, PriceHourly: 0.07143},
	}
}

func hetznerRegions() []Region {
	return []Region{
		{ID: "nbg1", Name: "Nuremberg", Available: true},
		{ID: "fsn1", Name: "Falkenstein", Available: true},
		{ID: "hel1", Name: "Helsinki", Available: true},
		{ID: "ash", Name: "Ashburn", Available: true},
	}
}

func hetznerSizes() []InstanceSize {
	return []InstanceSize{
		{ID: "cx22", Name: "cx22 (2 vCPU, 4 GB)", CPUCores: 2, MemoryMB: 4096, DiskGB: 40, PriceHourly: 0.006},
		{ID: "cx32", Name: "cx32 (4 vCPU, 8 GB)", CPUCores: 4, MemoryMB: 8192, DiskGB: 80, PriceHourly: 0.0113},
		{ID: "cx42", Name: "cx42 (8 vCPU, 16 GB)", CPUCores: 8, MemoryMB: 16384, DiskGB: 160, PriceHourly: 0.0273},
	}
}

// defaultSize is the standby instance size used when the caller does not
// pick one.
var defaultSize = map[string]string{
	"aws":          "t3.small",
	"digitalocean": "s-2vcpu-2gb",
	"hetzner":      "cx22",
}

// DefaultSize returns the default standby size for a provider.
func DefaultSize(providerType string) string {
	return defaultSize[providerType]
}
