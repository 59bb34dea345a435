package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create cycles table
			CREATE TABLE cycles (
				id VARCHAR(255) PRIMARY KEY,
				channel_id VARCHAR(255) NOT NULL,
				message_id VARCHAR(255) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE,
				outcome VARCHAR(50) NOT NULL CHECK (outcome IN ('completed', 'failed', 'rejected')),
				error_message TEXT,
				workers INT NOT NULL DEFAULT 0,
				failed_workers INT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_cycles_channel_started ON cycles(channel_id, started_at DESC);
			CREATE INDEX idx_cycles_outcome ON cycles(outcome);
		`,
	}
}
